package chat

import "context"

// UserStore persists users.
type UserStore interface {
	// GetOrCreate returns the user with the given username, creating it
	// if it does not exist.
	GetOrCreate(ctx context.Context, username string) (User, error)

	// GetByUsername returns the user with the given username.
	GetByUsername(ctx context.Context, username string) (User, error)

	// Save creates or updates a user.
	Save(ctx context.Context, user User) (User, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// Create stores a new conversation.
	Create(ctx context.Context, conversation Conversation) (Conversation, error)

	// Get returns the conversation with the given id.
	Get(ctx context.Context, id int64) (Conversation, error)

	// ListByUser returns a user's conversations, newest first.
	ListByUser(ctx context.Context, userID int64) ([]Conversation, error)

	// Delete removes a conversation and all of its messages.
	Delete(ctx context.Context, id int64) error

	// AddMessage appends a message to a conversation.
	AddMessage(ctx context.Context, message Message) (Message, error)

	// Messages returns a conversation's messages, oldest first.
	Messages(ctx context.Context, conversationID int64) ([]Message, error)
}

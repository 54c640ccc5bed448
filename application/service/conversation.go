package service

import (
	"context"
	"fmt"

	"github.com/sebastien-sq/ragserve/domain/chat"
)

// Conversations exposes conversation history management.
type Conversations struct {
	users         chat.UserStore
	conversations chat.ConversationStore
}

// NewConversations creates a Conversations service.
func NewConversations(users chat.UserStore, conversations chat.ConversationStore) *Conversations {
	return &Conversations{users: users, conversations: conversations}
}

// List returns a user's conversations, newest first. An unknown user has no
// conversations.
func (s *Conversations) List(ctx context.Context, username string) ([]chat.Conversation, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.conversations.ListByUser(ctx, user.ID())
}

// Messages returns a conversation's messages, oldest first.
func (s *Conversations) Messages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.Messages(ctx, conversationID)
}

// Create opens a new conversation for the user, creating the user if needed.
func (s *Conversations) Create(ctx context.Context, username, title string) (chat.Conversation, error) {
	user, err := s.users.GetOrCreate(ctx, username)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("resolve user: %w", err)
	}
	return s.conversations.Create(ctx, chat.NewConversation(user.ID(), title))
}

// Delete removes a conversation and its messages.
func (s *Conversations) Delete(ctx context.Context, conversationID int64) error {
	return s.conversations.Delete(ctx, conversationID)
}

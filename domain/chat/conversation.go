package chat

import (
	"time"
)

// TitleMaxRunes is the maximum conversation title length. Auto-generated
// titles are the first TitleMaxRunes runes of the opening question.
const TitleMaxRunes = 50

// Conversation represents a thread of messages owned by a user.
type Conversation struct {
	id        int64
	userID    int64
	title     string
	createdAt time.Time
	updatedAt time.Time
}

// NewConversation creates a conversation for new instances (not yet persisted).
func NewConversation(userID int64, title string) Conversation {
	now := time.Now()
	return Conversation{
		userID:    userID,
		title:     TruncateTitle(title),
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreConversation reconstructs a persisted conversation.
func RestoreConversation(id, userID int64, title string, createdAt, updatedAt time.Time) Conversation {
	return Conversation{
		id:        id,
		userID:    userID,
		title:     title,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the conversation identifier (0 if not yet persisted).
func (c Conversation) ID() int64 { return c.id }

// UserID returns the owning user's identifier.
func (c Conversation) UserID() int64 { return c.userID }

// Title returns the conversation title.
func (c Conversation) Title() string { return c.title }

// CreatedAt returns the creation timestamp.
func (c Conversation) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last update timestamp.
func (c Conversation) UpdatedAt() time.Time { return c.updatedAt }

// TruncateTitle caps a title to TitleMaxRunes runes.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= TitleMaxRunes {
		return title
	}
	return string(runes[:TitleMaxRunes])
}

package chat

import (
	"fmt"
	"time"
)

// Role identifies the author of a message.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents one turn of a conversation.
type Message struct {
	id             int64
	conversationID int64
	role           Role
	content        string
	createdAt      time.Time
}

// NewMessage creates a message for new instances (not yet persisted).
func NewMessage(conversationID int64, role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("invalid message role: %q", role)
	}
	return Message{
		conversationID: conversationID,
		role:           role,
		content:        content,
		createdAt:      time.Now(),
	}, nil
}

// RestoreMessage reconstructs a persisted message.
func RestoreMessage(id, conversationID int64, role Role, content string, createdAt time.Time) Message {
	return Message{
		id:             id,
		conversationID: conversationID,
		role:           role,
		content:        content,
		createdAt:      createdAt,
	}
}

// ID returns the message identifier (0 if not yet persisted).
func (m Message) ID() int64 { return m.id }

// ConversationID returns the owning conversation's identifier.
func (m Message) ConversationID() int64 { return m.conversationID }

// Role returns the message author role.
func (m Message) Role() Role { return m.role }

// Content returns the message text.
func (m Message) Content() string { return m.content }

// CreatedAt returns the creation timestamp.
func (m Message) CreatedAt() time.Time { return m.createdAt }

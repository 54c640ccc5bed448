// Package dto defines the request and response payloads of the v1 API.
package dto

import (
	"time"

	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/infrastructure/auth"
)

// AskRequest asks a question, optionally continuing a conversation.
type AskRequest struct {
	Question       string `json:"question"`
	Username       string `json:"username"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

// AskResponse carries the generated answer.
type AskResponse struct {
	Answer         string   `json:"answer"`
	ConversationID int64    `json:"conversation_id"`
	Username       string   `json:"username"`
	Sources        []string `json:"sources,omitempty"`
}

// IngestResponse summarizes an ingested document.
type IngestResponse struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// ConversationResponse is one conversation in a history listing.
type ConversationResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromConversation maps a domain conversation to its response shape.
func FromConversation(c chat.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID(),
		Title:     c.Title(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

// MessageResponse is one message of a conversation.
type MessageResponse struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FromMessage maps a domain message to its response shape.
func FromMessage(m chat.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID(),
		Role:      string(m.Role()),
		Content:   m.Content(),
		CreatedAt: m.CreatedAt(),
	}
}

// CreateConversationRequest opens a new conversation.
type CreateConversationRequest struct {
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
}

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest exchanges a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResetPasswordRequest asks for a recovery email.
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// UpdatePasswordRequest sets a new password for the authenticated user.
type UpdatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// UserResponse is the provider's view of an account.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionResponse carries a token pair, with the owning user when known.
type SessionResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    int64         `json:"expires_at,omitempty"`
	User         *UserResponse `json:"user,omitempty"`
}

// FromSession maps an identity provider session to its response shape.
func FromSession(identity auth.Identity, session auth.Session) SessionResponse {
	resp := SessionResponse{
		AccessToken:  session.AccessToken(),
		RefreshToken: session.RefreshToken(),
		ExpiresAt:    session.ExpiresAt(),
	}
	if identity.ID() != "" {
		resp.User = &UserResponse{ID: identity.ID(), Email: identity.Email()}
	}
	return resp
}

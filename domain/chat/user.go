// Package chat provides domain types for users, conversations, and messages.
package chat

import (
	"fmt"
	"strings"
	"time"
)

// User represents an account that owns conversations. Users are identified
// by their email address (the username) and may carry the identity provider's
// subject id once they have signed up through the auth layer.
type User struct {
	id         int64
	username   string
	authUserID string
	createdAt  time.Time
}

// NewUser creates a user for new instances (not yet persisted).
// The username must be an email address.
func NewUser(username string) (User, error) {
	if err := ValidateEmail(username); err != nil {
		return User{}, err
	}
	return User{
		username:  username,
		createdAt: time.Now(),
	}, nil
}

// RestoreUser reconstructs a persisted user.
func RestoreUser(id int64, username, authUserID string, createdAt time.Time) User {
	return User{
		id:         id,
		username:   username,
		authUserID: authUserID,
		createdAt:  createdAt,
	}
}

// ID returns the user's identifier (0 if not yet persisted).
func (u User) ID() int64 { return u.id }

// Username returns the user's email address.
func (u User) Username() string { return u.username }

// AuthUserID returns the identity provider's subject id, if linked.
func (u User) AuthUserID() string { return u.authUserID }

// CreatedAt returns the creation timestamp.
func (u User) CreatedAt() time.Time { return u.createdAt }

// WithAuthUserID returns a copy linked to an identity provider subject.
func (u User) WithAuthUserID(id string) User {
	u.authUserID = id
	return u
}

// ValidateEmail performs a minimal shape check on an email address.
func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address: %q", email)
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/infrastructure/auth"
)

// Auth delegates authentication to the identity provider and mirrors signed
// up users into the local users table so conversation history can reference
// them.
type Auth struct {
	client *auth.Client
	users  chat.UserStore
	logger *slog.Logger
}

// NewAuth creates an Auth service.
func NewAuth(client *auth.Client, users chat.UserStore, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{client: client, users: users, logger: logger}
}

// IsConfigured returns true when an identity provider is configured.
func (s *Auth) IsConfigured() bool {
	return s.client.IsConfigured()
}

// SignUp registers the user with the identity provider and mirrors the
// account locally. A mirroring failure does not fail the signup.
func (s *Auth) SignUp(ctx context.Context, email, password string) (auth.Identity, auth.Session, error) {
	identity, session, err := s.client.SignUp(ctx, email, password)
	if err != nil {
		return auth.Identity{}, auth.Session{}, err
	}

	if err := s.mirror(ctx, email, identity.ID()); err != nil {
		s.logger.WarnContext(ctx, "mirroring signed up user failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}

	return identity, session, nil
}

// Login authenticates with the password grant.
func (s *Auth) Login(ctx context.Context, email, password string) (auth.Identity, auth.Session, error) {
	return s.client.Login(ctx, email, password)
}

// Refresh exchanges a refresh token for a new session.
func (s *Auth) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	return s.client.Refresh(ctx, refreshToken)
}

// RequestPasswordReset asks the provider to send a recovery email.
func (s *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	return s.client.RequestPasswordReset(ctx, email)
}

// UpdatePassword sets a new password for the token's owner.
func (s *Auth) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return s.client.UpdatePassword(ctx, accessToken, newPassword)
}

// User resolves the identity owning the access token.
func (s *Auth) User(ctx context.Context, accessToken string) (auth.Identity, error) {
	return s.client.User(ctx, accessToken)
}

func (s *Auth) mirror(ctx context.Context, email, authUserID string) error {
	user, err := s.users.GetOrCreate(ctx, email)
	if err != nil {
		return err
	}
	if user.AuthUserID() == authUserID {
		return nil
	}
	if _, err := s.users.Save(ctx, user.WithAuthUserID(authUserID)); err != nil {
		return fmt.Errorf("link auth user: %w", err)
	}
	return nil
}

// Package auth implements a client for a GoTrue-compatible identity provider
// and the bearer-token middleware built on it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sebastien-sq/ragserve/internal/config"
)

// Error taxonomy for identity provider calls.
var (
	// ErrNotConfigured indicates no identity provider URL or key is set.
	ErrNotConfigured = errors.New("identity provider not configured")

	// ErrUnauthorized indicates the credentials or token were rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserExists indicates signup was attempted with a registered email.
	ErrUserExists = errors.New("user already registered")
)

// Session holds the token pair returned by the identity provider.
type Session struct {
	accessToken  string
	refreshToken string
	expiresAt    int64
}

// AccessToken returns the bearer access token.
func (s Session) AccessToken() string { return s.accessToken }

// RefreshToken returns the refresh token.
func (s Session) RefreshToken() string { return s.refreshToken }

// ExpiresAt returns the access token expiry as a Unix timestamp.
func (s Session) ExpiresAt() int64 { return s.expiresAt }

// Identity is the provider's view of an authenticated user.
type Identity struct {
	id        string
	email     string
	createdAt time.Time
}

// ID returns the provider's subject id.
func (i Identity) ID() string { return i.id }

// Email returns the user's email address.
func (i Identity) Email() string { return i.email }

// CreatedAt returns when the identity was created.
func (i Identity) CreatedAt() time.Time { return i.createdAt }

// Client talks to a GoTrue-compatible identity provider over REST. All
// authentication is delegated: this service never sees or stores passwords
// beyond forwarding them.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates an identity provider client from configuration.
func NewClient(cfg config.IdentityConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL(), "/"),
		anonKey:    cfg.AnonKey(),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsConfigured returns true when the client has a provider URL and key.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.anonKey != ""
}

// SignUp registers a new user and returns the identity with its session,
// when the provider issues one immediately.
func (c *Client) SignUp(ctx context.Context, email, password string) (Identity, Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return Identity{}, Session{}, err
	}
	return resp.identity(), resp.session(), nil
}

// Login authenticates with the password grant and returns the session.
func (c *Client) Login(ctx context.Context, email, password string) (Identity, Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return Identity{}, Session{}, err
	}
	return resp.identity(), resp.session(), nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &resp)
	if err != nil {
		return Session{}, err
	}
	return resp.session(), nil
}

// RequestPasswordReset asks the provider to send a recovery email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", "", map[string]string{
		"email": email,
	}, nil)
}

// UpdatePassword sets a new password for the user owning the access token.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]string{
		"password": newPassword,
	}, nil)
}

// User resolves the identity owning the access token.
func (c *Client) User(ctx context.Context, accessToken string) (Identity, error) {
	var resp userResponse
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &resp)
	if err != nil {
		return Identity{}, err
	}
	return resp.identity(), nil
}

// do performs one provider request. A bearer token overrides the anon key in
// the Authorization header; the apikey header always carries the anon key.
func (c *Client) do(ctx context.Context, method, path, bearer string, body any, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(data, &body)

	message := body.Msg
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = body.ErrorDescription
	}
	if message == "" {
		message = string(data)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case strings.Contains(strings.ToLower(message), "already registered"):
		return fmt.Errorf("%w: %s", ErrUserExists, message)
	default:
		return fmt.Errorf("identity provider error (%d): %s", resp.StatusCode, message)
	}
}

type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
}

func (r sessionResponse) session() Session {
	return Session{
		accessToken:  r.AccessToken,
		refreshToken: r.RefreshToken,
		expiresAt:    r.ExpiresAt,
	}
}

func (r sessionResponse) identity() Identity {
	if r.User == nil {
		return Identity{}
	}
	return r.User.identity()
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (r userResponse) identity() Identity {
	return Identity{id: r.ID, email: r.Email, createdAt: r.CreatedAt}
}

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sebastien-sq/ragserve/infrastructure/auth"
)

type contextKey string

// identityKey carries the authenticated identity in the request context.
const identityKey contextKey = "identity"

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	IsConfigured() bool
	User(ctx context.Context, accessToken string) (auth.Identity, error)
}

// RequireAuth returns middleware that verifies the bearer token against the
// identity provider and stores the identity in the request context. When no
// identity provider is configured the middleware passes requests through,
// leaving the API open.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.IsConfigured() {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				WriteError(w, r, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized), logger)
				return
			}

			identity, err := verifier.User(r.Context(), token)
			if err != nil {
				WriteError(w, r, err, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity stores an identity in the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom extracts the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

// BearerToken extracts the bearer token from the Authorization header,
// returning "" when absent or malformed.
func BearerToken(r *http.Request) string {
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

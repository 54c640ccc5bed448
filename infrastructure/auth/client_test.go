package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastien-sq/ragserve/internal/config"
)

// fakeIdentityProvider mimics the GoTrue endpoints this client uses.
func fakeIdentityProvider(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	writeSession := func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
			"expires_at":    1893456000,
			"user": map[string]any{
				"id":    "auth-user-1",
				"email": "alice@example.com",
			},
		})
	}

	mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}
		writeSession(w)
	})

	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "correct" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
				return
			}
		case "refresh_token":
			require.Equal(t, "refresh-token", body["refresh_token"])
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeSession(w)
	})

	mux.HandleFunc("POST /auth/v1/recover", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "invalid JWT"})
			return
		}
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    "auth-user-1",
				"email": "alice@example.com",
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	return httptest.NewServer(mux)
}

func testClient(url string) *Client {
	return NewClient(config.NewIdentityConfigWithOptions(
		config.WithIdentityURL(url),
		config.WithAnonKey("anon-key"),
	))
}

func TestClient_SignUp(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	identity, session, err := testClient(srv.URL).SignUp(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "auth-user-1", identity.ID())
	require.Equal(t, "alice@example.com", identity.Email())
	require.Equal(t, "access-token", session.AccessToken())
	require.Equal(t, "refresh-token", session.RefreshToken())
}

func TestClient_SignUpExistingUser(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	_, _, err := testClient(srv.URL).SignUp(context.Background(), "taken@example.com", "secret")
	require.ErrorIs(t, err, ErrUserExists)
}

func TestClient_Login(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	_, session, err := testClient(srv.URL).Login(context.Background(), "alice@example.com", "correct")
	require.NoError(t, err)
	require.Equal(t, "access-token", session.AccessToken())
}

func TestClient_LoginWrongPassword(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	_, _, err := testClient(srv.URL).Login(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Refresh(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	session, err := testClient(srv.URL).Refresh(context.Background(), "refresh-token")
	require.NoError(t, err)
	require.Equal(t, "access-token", session.AccessToken())
}

func TestClient_User(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	client := testClient(srv.URL)

	identity, err := client.User(context.Background(), "access-token")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", identity.Email())

	_, err = client.User(context.Background(), "bogus")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_UpdatePassword(t *testing.T) {
	srv := fakeIdentityProvider(t)
	defer srv.Close()

	err := testClient(srv.URL).UpdatePassword(context.Background(), "access-token", "new-secret")
	require.NoError(t, err)
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.NewIdentityConfig())
	require.False(t, client.IsConfigured())

	_, _, err := client.Login(context.Background(), "a@b.co", "x")
	require.ErrorIs(t, err, ErrNotConfigured)
}

package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sebastien-sq/ragserve/application/service"
	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/infrastructure/auth"
	"github.com/sebastien-sq/ragserve/internal/database"
)

type stubAsker struct {
	err error
}

func (s stubAsker) Ask(_ context.Context, username, _ string, conversationID int64) (service.Answer, error) {
	if s.err != nil {
		return service.Answer{}, s.err
	}
	if conversationID == 0 {
		conversationID = 42
	}
	return service.NewAnswer("stub answer", conversationID, username, []string{"doc.txt"}), nil
}

type stubIngester struct {
	lastFilename string
	cleared      bool
	err          error
}

func (s *stubIngester) Document(_ context.Context, filename string, data []byte) (service.IngestResult, error) {
	if s.err != nil {
		return service.IngestResult{}, s.err
	}
	s.lastFilename = filename
	return service.NewIngestResult(filename, len(data)/10+1), nil
}

func (s *stubIngester) ClearIndex(context.Context) error {
	s.cleared = true
	return nil
}

type stubConversations struct {
	conversations map[int64]chat.Conversation
}

func (s *stubConversations) List(_ context.Context, username string) ([]chat.Conversation, error) {
	if username == "nobody@example.com" {
		return nil, fmt.Errorf("%w: user %s", database.ErrNotFound, username)
	}
	return []chat.Conversation{chat.RestoreConversation(1, 1, "chat", timeZero(), timeZero())}, nil
}

func (s *stubConversations) Messages(_ context.Context, id int64) ([]chat.Message, error) {
	if _, ok := s.conversations[id]; !ok {
		return nil, fmt.Errorf("%w: conversation %d", database.ErrNotFound, id)
	}
	return []chat.Message{chat.RestoreMessage(1, id, chat.RoleUser, "hello", timeZero())}, nil
}

func (s *stubConversations) Create(_ context.Context, username, title string) (chat.Conversation, error) {
	c := chat.RestoreConversation(7, 1, chat.TruncateTitle(title), timeZero(), timeZero())
	if s.conversations == nil {
		s.conversations = map[int64]chat.Conversation{}
	}
	s.conversations[c.ID()] = c
	return c, nil
}

func (s *stubConversations) Delete(_ context.Context, id int64) error {
	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("%w: conversation %d", database.ErrNotFound, id)
	}
	delete(s.conversations, id)
	return nil
}

type stubAuth struct {
	configured bool
}

func (s stubAuth) IsConfigured() bool { return s.configured }

func (s stubAuth) SignUp(_ context.Context, email, _ string) (auth.Identity, auth.Session, error) {
	if email == "taken@example.com" {
		return auth.Identity{}, auth.Session{}, fmt.Errorf("%w: %s", auth.ErrUserExists, email)
	}
	return auth.Identity{}, auth.Session{}, nil
}

func (s stubAuth) Login(_ context.Context, _, password string) (auth.Identity, auth.Session, error) {
	if password != "correct" {
		return auth.Identity{}, auth.Session{}, fmt.Errorf("%w: invalid credentials", auth.ErrUnauthorized)
	}
	return auth.Identity{}, auth.Session{}, nil
}

func (s stubAuth) Refresh(context.Context, string) (auth.Session, error) {
	return auth.Session{}, nil
}

func (s stubAuth) RequestPasswordReset(context.Context, string) error { return nil }

func (s stubAuth) UpdatePassword(context.Context, string, string) error { return nil }

func (s stubAuth) User(_ context.Context, token string) (auth.Identity, error) {
	if token != "valid-token" {
		return auth.Identity{}, fmt.Errorf("%w: invalid token", auth.ErrUnauthorized)
	}
	return auth.Identity{}, nil
}

func newTestRouter(t *testing.T, authStub stubAuth) (chi.Router, *stubIngester, *stubConversations) {
	t.Helper()

	ingester := &stubIngester{}
	conversations := &stubConversations{}

	router := NewRouter(
		NewAskRouter(stubAsker{}, nil),
		NewIngestRouter(ingester, nil),
		NewConversationsRouter(conversations, nil),
		NewAuthRouter(authStub, nil),
		authStub,
		nil,
	)

	r := chi.NewRouter()
	r.Route("/api/v1", router.Routes)
	return r, ingester, conversations
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAsk(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", map[string]any{
		"question": "what is this?",
		"username": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer         string   `json:"answer"`
		ConversationID int64    `json:"conversation_id"`
		Sources        []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "stub answer", resp.Answer)
	require.Equal(t, int64(42), resp.ConversationID)
	require.Equal(t, []string{"doc.txt"}, resp.Sources)
}

func TestAsk_MissingFields(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", map[string]any{"question": "q"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_Multipart(t *testing.T) {
	router, ingester, _ := newTestRouter(t, stubAuth{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(strings.Repeat("content ", 50)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "notes.txt", ingester.lastFilename)
}

func TestIngest_MissingFile(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearIndex(t *testing.T) {
	router, ingester, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/index", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ingester.cleared)
}

func TestConversations_ListUnknownUser(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversations/nobody@example.com", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversations_CreateListDelete(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/conversations", map[string]string{
		"username": "alice@example.com",
		"title":    "my chat",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversations/alice@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversations/alice@example.com/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/conversations/alice@example.com/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/conversations/alice@example.com/7", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversations_InvalidID(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversations/alice@example.com/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversations_AuthRequiredWhenConfigured(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{configured: true})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/conversations/alice@example.com", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/alice@example.com", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_SignUpAndLogin(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "taken@example.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_MeRequiresToken(t *testing.T) {
	router, _, _ := newTestRouter(t, stubAuth{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func timeZero() time.Time { return time.Unix(0, 0) }

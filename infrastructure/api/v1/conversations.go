package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/infrastructure/api/middleware"
	"github.com/sebastien-sq/ragserve/infrastructure/api/v1/dto"
)

// ConversationService manages conversation history.
type ConversationService interface {
	List(ctx context.Context, username string) ([]chat.Conversation, error)
	Messages(ctx context.Context, conversationID int64) ([]chat.Message, error)
	Create(ctx context.Context, username, title string) (chat.Conversation, error)
	Delete(ctx context.Context, conversationID int64) error
}

// ConversationsRouter handles conversation history endpoints.
type ConversationsRouter struct {
	conversations ConversationService
	logger        *slog.Logger
}

// NewConversationsRouter creates a ConversationsRouter.
func NewConversationsRouter(conversations ConversationService, logger *slog.Logger) *ConversationsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationsRouter{conversations: conversations, logger: logger}
}

// Routes registers the conversation endpoints.
func (rt *ConversationsRouter) Routes(r chi.Router) {
	r.Post("/conversations", rt.create)
	r.Get("/conversations/{username}", rt.list)
	r.Get("/conversations/{username}/{id}", rt.messages)
	r.Delete("/conversations/{username}/{id}", rt.delete)
}

func (rt *ConversationsRouter) list(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	conversations, err := rt.conversations.List(r.Context(), username)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}

	out := make([]dto.ConversationResponse, len(conversations))
	for i, c := range conversations {
		out[i] = dto.FromConversation(c)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

func (rt *ConversationsRouter) messages(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: middleware.ErrorBody{
			Status: http.StatusText(http.StatusBadRequest),
			Detail: err.Error(),
		}})
		return
	}

	messages, err := rt.conversations.Messages(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}

	out := make([]dto.MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = dto.FromMessage(m)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

func (rt *ConversationsRouter) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, fmt.Errorf("decode request: %w", err), rt.logger)
		return
	}
	if req.Username == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: middleware.ErrorBody{
			Status: http.StatusText(http.StatusBadRequest),
			Detail: "username is required",
		}})
		return
	}

	conversation, err := rt.conversations.Create(r.Context(), req.Username, req.Title)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, dto.FromConversation(conversation))
}

func (rt *ConversationsRouter) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: middleware.ErrorBody{
			Status: http.StatusText(http.StatusBadRequest),
			Detail: err.Error(),
		}})
		return
	}

	if err := rt.conversations.Delete(r.Context(), id); err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id: %q", raw)
	}
	return id, nil
}

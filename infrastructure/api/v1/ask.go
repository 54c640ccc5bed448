// Package v1 provides the v1 API routes.
package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sebastien-sq/ragserve/application/service"
	"github.com/sebastien-sq/ragserve/infrastructure/api/middleware"
	"github.com/sebastien-sq/ragserve/infrastructure/api/v1/dto"
)

// Asker answers questions with retrieval-augmented generation.
type Asker interface {
	Ask(ctx context.Context, username, question string, conversationID int64) (service.Answer, error)
}

// AskRouter handles the question-answering endpoint.
type AskRouter struct {
	asker  Asker
	logger *slog.Logger
}

// NewAskRouter creates an AskRouter.
func NewAskRouter(asker Asker, logger *slog.Logger) *AskRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskRouter{asker: asker, logger: logger}
}

// Routes registers the ask endpoint.
func (rt *AskRouter) Routes(r chi.Router) {
	r.Post("/ask", rt.ask)
}

func (rt *AskRouter) ask(w http.ResponseWriter, r *http.Request) {
	var req dto.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, fmt.Errorf("decode request: %w", err), rt.logger)
		return
	}
	if req.Question == "" || req.Username == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: middleware.ErrorBody{
			Status: http.StatusText(http.StatusBadRequest),
			Detail: "question and username are required",
		}})
		return
	}

	answer, err := rt.asker.Ask(r.Context(), req.Username, req.Question, req.ConversationID)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.AskResponse{
		Answer:         answer.Text(),
		ConversationID: answer.ConversationID(),
		Username:       answer.Username(),
		Sources:        answer.Sources(),
	})
}

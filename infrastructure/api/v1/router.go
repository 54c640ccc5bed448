package v1

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/sebastien-sq/ragserve/infrastructure/api/middleware"
)

// Router aggregates the v1 sub-routers.
type Router struct {
	ask           *AskRouter
	ingest        *IngestRouter
	conversations *ConversationsRouter
	auth          *AuthRouter
	verifier      middleware.TokenVerifier
	logger        *slog.Logger
}

// NewRouter creates the v1 router.
func NewRouter(
	ask *AskRouter,
	ingest *IngestRouter,
	conversations *ConversationsRouter,
	authRouter *AuthRouter,
	verifier middleware.TokenVerifier,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		ask:           ask,
		ingest:        ingest,
		conversations: conversations,
		auth:          authRouter,
		verifier:      verifier,
		logger:        logger,
	}
}

// Routes registers every v1 endpoint. Conversation history requires a valid
// bearer token when an identity provider is configured.
func (rt *Router) Routes(r chi.Router) {
	rt.auth.Routes(r)
	rt.ask.Routes(r)
	rt.ingest.Routes(r)

	r.Group(func(g chi.Router) {
		g.Use(middleware.RequireAuth(rt.verifier, rt.logger))
		rt.conversations.Routes(g)
	})
}

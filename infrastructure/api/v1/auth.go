package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sebastien-sq/ragserve/infrastructure/api/middleware"
	"github.com/sebastien-sq/ragserve/infrastructure/api/v1/dto"
	"github.com/sebastien-sq/ragserve/infrastructure/auth"
)

// AuthService delegates authentication to the identity provider.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (auth.Identity, auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Identity, auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
	User(ctx context.Context, accessToken string) (auth.Identity, error)
}

// AuthRouter handles the authentication endpoints.
type AuthRouter struct {
	service AuthService
	logger  *slog.Logger
}

// NewAuthRouter creates an AuthRouter.
func NewAuthRouter(service AuthService, logger *slog.Logger) *AuthRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthRouter{service: service, logger: logger}
}

// Routes registers the auth endpoints under /auth.
func (rt *AuthRouter) Routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", rt.signUp)
		r.Post("/login", rt.login)
		r.Post("/refresh", rt.refresh)
		r.Post("/reset-password", rt.resetPassword)
		r.Post("/update-password", rt.updatePassword)
		r.Get("/me", rt.me)
	})
}

func (rt *AuthRouter) signUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if !rt.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		rt.badRequest(w, "email and password are required")
		return
	}

	identity, session, err := rt.service.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, dto.FromSession(identity, session))
}

func (rt *AuthRouter) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !rt.decode(w, r, &req) {
		return
	}

	identity, session, err := rt.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromSession(identity, session))
}

func (rt *AuthRouter) refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !rt.decode(w, r, &req) {
		return
	}

	session, err := rt.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromSession(auth.Identity{}, session))
}

func (rt *AuthRouter) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !rt.decode(w, r, &req) {
		return
	}

	if err := rt.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "recovery email sent"})
}

func (rt *AuthRouter) updatePassword(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		middleware.WriteError(w, r, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized), rt.logger)
		return
	}

	var req dto.UpdatePasswordRequest
	if !rt.decode(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		rt.badRequest(w, "new_password is required")
		return
	}

	if err := rt.service.UpdatePassword(r.Context(), token, req.NewPassword); err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (rt *AuthRouter) me(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		middleware.WriteError(w, r, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized), rt.logger)
		return
	}

	identity, err := rt.service.User(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.UserResponse{ID: identity.ID(), Email: identity.Email()})
}

func (rt *AuthRouter) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		rt.badRequest(w, fmt.Sprintf("decode request: %v", err))
		return false
	}
	return true
}

func (rt *AuthRouter) badRequest(w http.ResponseWriter, detail string) {
	middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: middleware.ErrorBody{
		Status: http.StatusText(http.StatusBadRequest),
		Detail: detail,
	}})
}

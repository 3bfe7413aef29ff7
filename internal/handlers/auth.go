package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/services"
)

// AuthHandler provides registration, login and current-user endpoints.
type AuthHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: loggerOrNop(logger)}
}

// AuthRouter registers auth routes on the given router. limit guards the
// credential endpoints and may be nil.
func AuthRouter(r chi.Router, h *AuthHandler, requireAuth, limit func(http.Handler) http.Handler) {
	credentials := r
	if limit != nil {
		credentials = r.With(limit)
	}
	credentials.Post("/register", h.Register)
	credentials.Post("/login", h.Login)
	r.With(requireAuth).Get("/me", h.Me)
}

// RequireAuth enforces bearer authentication and stores the claim in the
// request context. A missing token is 401; a token that does not verify is 403.
func RequireAuth(guard *auth.Guard, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = loggerOrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claim, err := guard.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				var tokenErr *auth.TokenError
				if errors.As(err, &tokenErr) {
					logger.Debug("token rejected",
						zap.String("reason", string(tokenErr.Reason)),
						zap.String("path", r.URL.Path),
					)
				}
				writeServiceError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaim(r.Context(), claim)))
		})
	}
}

// Register creates a new user account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user registered", zap.Int("user_id", res.User.ID), zap.String("username", res.User.Username))
	writeJSON(w, http.StatusCreated, res)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}

	user, err := h.users.Me(r.Context(), claim.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/services"
)

// PublicHandler serves public listings and profiles. None of its read
// routes require a token.
type PublicHandler struct {
	users   *services.UserService
	blogs   *services.BlogService
	movies  *services.MediaService
	tvShows *services.MediaService
	logger  *zap.Logger
}

func NewPublicHandler(users *services.UserService, blogs *services.BlogService, movies, tvShows *services.MediaService, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{
		users:   users,
		blogs:   blogs,
		movies:  movies,
		tvShows: tvShows,
		logger:  loggerOrNop(logger),
	}
}

// PublicRouter registers /public/{username}/... routes.
func PublicRouter(r chi.Router, h *PublicHandler) {
	r.Get("/{username}/blogs", h.Blogs)
	r.Get("/{username}/movies", h.Movies)
	r.Get("/{username}/tvshows", h.TVShows)
}

// ProfileRouter registers the profile routes. Reading is public, updating
// needs requireAuth.
func ProfileRouter(r chi.Router, h *PublicHandler, requireAuth func(http.Handler) http.Handler) {
	r.Get("/{username}", h.Profile)
	r.With(requireAuth).Put("/", h.UpdateProfile)
}

func (h *PublicHandler) Blogs(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Lookup(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	blogs, err := h.blogs.ListPublic(r.Context(), user.ID, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

func (h *PublicHandler) Movies(w http.ResponseWriter, r *http.Request) {
	h.media(w, r, h.movies)
}

func (h *PublicHandler) TVShows(w http.ResponseWriter, r *http.Request) {
	h.media(w, r, h.tvShows)
}

func (h *PublicHandler) media(w http.ResponseWriter, r *http.Request, svc *services.MediaService) {
	user, err := h.users.Lookup(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	items, err := svc.ListPublic(r.Context(), user.ID, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Profile returns a public profile with counts of public items.
func (h *PublicHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile replaces the caller's name and bio.
func (h *PublicHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	var req services.ProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), claim.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

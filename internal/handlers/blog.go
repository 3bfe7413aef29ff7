package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/services"
)

// BlogHandler provides HTTP handlers for the caller's blogs.
type BlogHandler struct {
	blogs  *services.BlogService
	logger *zap.Logger
}

func NewBlogHandler(blogs *services.BlogService, logger *zap.Logger) *BlogHandler {
	return &BlogHandler{blogs: blogs, logger: loggerOrNop(logger)}
}

// BlogRouter registers blog routes. Every route needs an authenticated claim.
func BlogRouter(r chi.Router, h *BlogHandler) {
	r.Get("/", h.List)
	r.Get("/filter", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List returns the caller's blogs, applying sortBy, search and tag.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	blogs, err := h.blogs.List(r.Context(), claim, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	blog, err := h.blogs.Get(r.Context(), claim, pathID(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	var req services.BlogInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	blog, err := h.blogs.Create(r.Context(), claim, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("blog created", zap.Int("user_id", claim.UserID), zap.Int("blog_id", blog.ID))
	writeJSON(w, http.StatusCreated, blog)
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	var req services.BlogInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	blog, err := h.blogs.Update(r.Context(), claim, pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	if err := h.blogs.Delete(r.Context(), claim, pathID(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "blog deleted"})
}

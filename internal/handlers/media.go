package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/services"
)

// MediaHandler serves one rated collection, movies or TV shows.
type MediaHandler struct {
	media  *services.MediaService
	logger *zap.Logger
}

func NewMediaHandler(media *services.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{media: media, logger: loggerOrNop(logger)}
}

// MediaRouter registers the collection's routes. Every route needs an
// authenticated claim.
func MediaRouter(r chi.Router, h *MediaHandler) {
	r.Get("/", h.List)
	r.Get("/filter", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List returns the caller's items, applying sortBy, search, minRating and year.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	items, err := h.media.List(r.Context(), claim, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	item, err := h.media.Get(r.Context(), claim, pathID(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *MediaHandler) Create(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	var req services.MediaInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	item, err := h.media.Create(r.Context(), claim, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("media created",
		zap.String("kind", string(h.media.Kind())),
		zap.Int("user_id", claim.UserID),
		zap.Int("item_id", item.ID),
	)
	writeJSON(w, http.StatusCreated, item)
}

func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	var req services.MediaInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	item, err := h.media.Update(r.Context(), claim, pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	if err := h.media.Delete(r.Context(), claim, pathID(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: h.media.Kind().Label() + " deleted"})
}

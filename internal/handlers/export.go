package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/services"
)

// ExportHandler creates and downloads library exports.
type ExportHandler struct {
	exports *services.ExportService
	logger  *zap.Logger
}

func NewExportHandler(exports *services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exports: exports, logger: loggerOrNop(logger)}
}

// ExportRouter registers export routes. Every route needs an authenticated claim.
func ExportRouter(r chi.Router, h *ExportHandler) {
	r.Post("/", h.Create)
	r.Get("/{exportID}", h.Download)
}

func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	receipt, err := h.exports.Create(r.Context(), claim)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("library exported",
		zap.Int("user_id", claim.UserID),
		zap.String("key", receipt.Key),
		zap.Int64("size", receipt.Size),
	)
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	claim, ok := claimFrom(w, r)
	if !ok {
		return
	}
	rc, err := h.exports.Open(r.Context(), claim, chi.URLParam(r, "exportID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("export download interrupted", zap.Int("user_id", claim.UserID), zap.Error(err))
	}
}

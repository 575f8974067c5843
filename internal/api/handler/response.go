package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/formboard/internal/service"
)

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, action string, err error) {
	respondJSON(w, status, map[string]any{
		"error":  err.Error(),
		"action": action,
	})
}

// respondServiceError maps service sentinels onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, action, err)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, action, err)
	case errors.Is(err, service.ErrConflict):
		respondError(w, http.StatusConflict, action, err)
	default:
		logger.ErrorContext(r.Context(), "request failed", "action", action, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "internal server error / 服务器内部错误",
			"action": action,
		})
	}
}

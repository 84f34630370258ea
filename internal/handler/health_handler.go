package handler

import (
	"context"
	"log/slog"
	"net/http"

	"contacts-api/internal/model"
	"contacts-api/pkg/apierror"
)

type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Contacts Application"})
}

// Healthchecker verifies database connectivity with a trivial query.
func (h *HealthHandler) Healthchecker(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		slog.Error("health check failed", "error", err.Error())
		writeError(w, apierror.New("SERVICE_UNAVAILABLE", "Error connecting to the database", http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Welcome to Contacts App!"})
}

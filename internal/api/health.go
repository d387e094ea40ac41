package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type databasePinger interface {
	PingContext(ctx context.Context) error
}

type imagePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	database databasePinger
	images   imagePinger
}

func NewHealthHandler(database databasePinger, images imagePinger) *HealthHandler {
	return &HealthHandler{database: database, images: images}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{
		"database": "ok",
		"images":   "ok",
	}

	if err := h.database.PingContext(ctx); err != nil {
		slog.Warn("database health check failed", "component", "health", "error", err)
		checks["database"] = "error"
		status = http.StatusServiceUnavailable
	}
	if err := h.images.Ping(ctx); err != nil {
		slog.Warn("image storage health check failed", "component", "health", "error", err)
		checks["images"] = "error"
		status = http.StatusServiceUnavailable
	}

	result := "ok"
	if status != http.StatusOK {
		result = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status": result,
		"checks": checks,
	})
}

package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hykang/chorus/conversation"
)

// HealthHandler reports liveness and store reachability.
type HealthHandler struct {
	store   conversation.Store
	logger  *zap.Logger
	started time.Time
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(store conversation.Store, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: store, logger: logger, started: time.Now()}
}

// HandleHealth serves GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("store ping failed", zap.Error(err))
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, map[string]interface{}{
		"status": status,
		"uptime": time.Since(h.started).String(),
	})
}

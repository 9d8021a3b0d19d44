package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hykang/chorus/usage"
)

// UsageHandler serves the caller's monthly usage summary.
type UsageHandler struct {
	ledger *usage.Ledger
	logger *zap.Logger
}

// NewUsageHandler creates the usage handler.
func NewUsageHandler(ledger *usage.Ledger, logger *zap.Logger) *UsageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageHandler{ledger: ledger, logger: logger.With(zap.String("handler", "usage"))}
}

// HandleSummary serves GET /v1/usage.
func (h *UsageHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, plan, ok := RequireUser(w, r, h.logger)
	if !ok {
		return
	}

	summary, err := h.ledger.Summary(r.Context(), userID, plan, time.Now())
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, summary)
}

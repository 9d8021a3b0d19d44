package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/collaboration"
	"github.com/hykang/chorus/conversation"
	"github.com/hykang/chorus/provider"
	"github.com/hykang/chorus/types"
	"github.com/hykang/chorus/usage"
)

// MultiSendRequest is the POST body for one multi-agent turn.
type MultiSendRequest struct {
	ConversationID string   `json:"conversation_id"`
	Message        string   `json:"message"`
	AgentIDs       []string `json:"agent_ids"`
	Mode           string   `json:"mode"`
	Rounds         int      `json:"rounds,omitempty"`
}

// MultiSendSummary aggregates one turn for the response envelope.
type MultiSendSummary struct {
	TotalAgents  int     `json:"total_agents"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCost    float64 `json:"total_cost"`
	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
}

// MultiSendResponse is the data payload of a completed turn.
type MultiSendResponse struct {
	ConversationID string                `json:"conversation_id"`
	ConfigVersion  int                   `json:"config_version"`
	Mode           string                `json:"mode"`
	Responses      []types.AgentResponse `json:"responses"`
	Synthesis      string                `json:"synthesis,omitempty"`
	Summary        MultiSendSummary      `json:"summary"`
}

// MultiSendHandler runs one multi-agent turn end to end: validation,
// plan gating, quota, config reconciliation, context extraction,
// orchestration, persistence, usage recording.
type MultiSendHandler struct {
	store        conversation.Store
	tracker      *conversation.Tracker
	catalog      *catalog.Catalog
	providers    provider.CapabilityProvider
	orchestrator *collaboration.Orchestrator
	ledger       *usage.Ledger
	logger       *zap.Logger

	maxContextMessages int
	agentTimeout       time.Duration
}

// MultiSendConfig wires a MultiSendHandler.
type MultiSendConfig struct {
	Store              conversation.Store
	Tracker            *conversation.Tracker
	Catalog            *catalog.Catalog
	Providers          provider.CapabilityProvider
	Orchestrator       *collaboration.Orchestrator
	Ledger             *usage.Ledger
	Logger             *zap.Logger
	MaxContextMessages int
	AgentTimeout       time.Duration
}

// NewMultiSendHandler creates the handler.
func NewMultiSendHandler(cfg MultiSendConfig) *MultiSendHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxMessages := cfg.MaxContextMessages
	if maxMessages <= 0 {
		maxMessages = conversation.DefaultMaxContextMessages
	}
	return &MultiSendHandler{
		store:              cfg.Store,
		tracker:            cfg.Tracker,
		catalog:            cfg.Catalog,
		providers:          cfg.Providers,
		orchestrator:       cfg.Orchestrator,
		ledger:             cfg.Ledger,
		logger:             logger.With(zap.String("handler", "multi_send")),
		maxContextMessages: maxMessages,
		agentTimeout:       cfg.AgentTimeout,
	}
}

// HandleMultiSend serves POST /v1/chat/multi-send.
func (h *MultiSendHandler) HandleMultiSend(w http.ResponseWriter, r *http.Request) {
	var req MultiSendRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	userID, plan, ok := RequireUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.validateRequest(&req); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	// Plan gating before any billing or mutation.
	validation := h.catalog.Validate(req.AgentIDs, plan)
	if len(validation.NeedsUpgrade) > 0 {
		WriteError(w, r, types.NewError(types.ErrNeedsUpgrade,
			fmt.Sprintf("agents require a paid plan: %s", strings.Join(validation.NeedsUpgrade, ", "))).
			WithHTTPStatus(http.StatusForbidden), h.logger)
		return
	}
	if len(validation.Invalid) > 0 {
		WriteError(w, r, types.NewError(types.ErrInvalidArgument,
			fmt.Sprintf("unknown or disabled agents: %s", strings.Join(validation.Invalid, ", "))).
			WithHTTPStatus(http.StatusBadRequest), h.logger)
		return
	}

	ctx := r.Context()
	if err := h.ledger.CheckQuota(ctx, userID, plan, time.Now()); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	// Reconcile also checks existence and ownership.
	version, err := h.tracker.Reconcile(ctx, req.ConversationID, userID, req.AgentIDs, req.Mode)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	conv, err := h.store.Get(ctx, req.ConversationID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	snapshot := conv.LastSnapshot()

	contextMessages := conversation.ExtractContext(conv.Messages, req.AgentIDs, h.maxContextMessages)

	agents, err := h.resolveAgents(req.AgentIDs)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	runCtx := ctx
	if h.agentTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.agentTimeout)
		defer cancel()
	}

	result, err := h.orchestrator.Run(runCtx, &collaboration.Request{
		Mode:        collaboration.Mode(req.Mode),
		Agents:      agents,
		UserMessage: req.Message,
		Context:     contextMessages,
		Rounds:      req.Rounds,
	})
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	if err := h.persistTurn(ctx, req.ConversationID, req.Message, snapshot, result); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	if err := h.ledger.RecordTurn(ctx, userID, req.ConversationID, req.Mode, result.Responses); err != nil {
		// The turn already ran and persisted; losing a usage row is
		// not worth failing the response over.
		h.logger.Error("usage recording failed",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err),
		)
	}

	WriteSuccess(w, r, MultiSendResponse{
		ConversationID: req.ConversationID,
		ConfigVersion:  version,
		Mode:           req.Mode,
		Responses:      result.Responses,
		Synthesis:      result.Synthesis,
		Summary: MultiSendSummary{
			TotalAgents:  len(result.Responses),
			TotalTokens:  result.Totals.Tokens,
			TotalCost:    result.Totals.Cost,
			SuccessCount: result.Totals.SuccessCount,
			ErrorCount:   result.Totals.ErrorCount,
		},
	})
}

func (h *MultiSendHandler) validateRequest(req *MultiSendRequest) error {
	switch {
	case req.ConversationID == "":
		return types.NewError(types.ErrInvalidArgument, "conversation_id is required").WithHTTPStatus(http.StatusBadRequest)
	case strings.TrimSpace(req.Message) == "":
		return types.NewError(types.ErrInvalidArgument, "message is required").WithHTTPStatus(http.StatusBadRequest)
	case len(req.AgentIDs) == 0:
		return types.NewError(types.ErrInvalidArgument, "agent_ids is required").WithHTTPStatus(http.StatusBadRequest)
	case len(req.AgentIDs) > collaboration.MaxAgentsPerTurn:
		return types.NewError(types.ErrInvalidArgument,
			fmt.Sprintf("at most %d agents per turn", collaboration.MaxAgentsPerTurn)).WithHTTPStatus(http.StatusBadRequest)
	case !collaboration.Mode(req.Mode).Valid():
		return types.NewError(types.ErrInvalidArgument, "unknown collaboration mode "+req.Mode).WithHTTPStatus(http.StatusBadRequest)
	case req.Rounds < 0:
		return types.NewError(types.ErrInvalidArgument, "rounds must be positive").WithHTTPStatus(http.StatusBadRequest)
	}
	return nil
}

func (h *MultiSendHandler) resolveAgents(agentIDs []string) ([]collaboration.AgentCapability, error) {
	agents := make([]collaboration.AgentCapability, 0, len(agentIDs))
	for _, id := range agentIDs {
		a := h.catalog.Get(id)
		if a == nil {
			return nil, types.NewError(types.ErrInvalidArgument, "unknown agent "+id).WithHTTPStatus(http.StatusBadRequest)
		}
		cap, err := h.providers.Capability(id)
		if err != nil {
			return nil, types.NewError(types.ErrProviderError, "no capability registered for agent "+id).
				WithCause(err).
				WithHTTPStatus(http.StatusBadGateway)
		}
		agents = append(agents, collaboration.AgentCapability{Agent: *a, Capability: cap})
	}
	return agents, nil
}

// persistTurn appends the user message, the multi-agent assistant
// message and, when present, the synthesis message, all stamped with
// the active config snapshot.
func (h *MultiSendHandler) persistTurn(ctx context.Context, conversationID, userMessage string, snapshot *types.ConfigSnapshot, result *collaboration.Result) error {
	now := time.Now().UTC()

	if err := h.store.AppendMessage(ctx, conversationID, types.StoredMessage{
		ID:            uuid.NewString(),
		Role:          types.RoleUser,
		Content:       userMessage,
		ConfigVersion: snapshot,
		CreatedAt:     now,
	}); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}

	if err := h.store.AppendMessage(ctx, conversationID, types.StoredMessage{
		ID:             uuid.NewString(),
		Role:           types.RoleAssistant,
		MultiAgent:     true,
		AgentResponses: result.Responses,
		ConfigVersion:  snapshot,
		TokensUsed:     result.Totals.Tokens,
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}

	if result.Synthesis != "" {
		if err := h.store.AppendMessage(ctx, conversationID, types.StoredMessage{
			ID:            uuid.NewString(),
			Role:          types.RoleAssistant,
			Content:       result.Synthesis,
			ConfigVersion: snapshot,
			CreatedAt:     now,
		}); err != nil {
			return fmt.Errorf("persist synthesis message: %w", err)
		}
	}

	return h.store.Touch(ctx, conversationID)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/collaboration"
	"github.com/hykang/chorus/conversation"
	"github.com/hykang/chorus/internal/ctxkeys"
	"github.com/hykang/chorus/provider"
	"github.com/hykang/chorus/types"
	"github.com/hykang/chorus/usage"
)

type multiSendFixture struct {
	handler *MultiSendHandler
	store   conversation.Store
	ledger  *usage.Ledger
	convID  string
}

func setupMultiSend(t *testing.T) *multiSendFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	agents := []catalog.Agent{
		{ID: "alpha", Name: "Alpha", Provider: "openai", Model: "gpt-4", Enabled: true},
		{ID: "beta", Name: "Beta", Provider: "anthropic", Model: "claude-3-5-sonnet-20241022", Enabled: true},
		{ID: "prem", Name: "Premium", Provider: "openai", Model: "gpt-4", Enabled: true, Premium: true},
		{ID: "broken", Name: "Broken", Provider: "openai", Model: "gpt-4", Enabled: true},
	}
	cat := catalog.New(agents)

	registry := provider.NewRegistry(logger)
	registry.Register("alpha", provider.CapabilityFunc(func(ctx context.Context, msgs []types.ChatMessage) (*provider.Invocation, error) {
		return &provider.Invocation{Content: "alpha says hi", TotalTokens: 10, Cost: 0.01}, nil
	}))
	registry.Register("beta", provider.CapabilityFunc(func(ctx context.Context, msgs []types.ChatMessage) (*provider.Invocation, error) {
		return &provider.Invocation{Content: "beta says hi", TotalTokens: 20, Cost: 0.02}, nil
	}))
	registry.Register("prem", provider.CapabilityFunc(func(ctx context.Context, msgs []types.ChatMessage) (*provider.Invocation, error) {
		return &provider.Invocation{Content: "premium", TotalTokens: 5, Cost: 0.05}, nil
	}))
	registry.Register("broken", provider.CapabilityFunc(func(ctx context.Context, msgs []types.ChatMessage) (*provider.Invocation, error) {
		return nil, errors.New("provider down")
	}))

	store := conversation.NewMemoryStore()
	now := time.Now().UTC()
	convID := "conv-1"
	require.NoError(t, store.Create(context.Background(), &types.Conversation{
		ID:        convID,
		UserID:    "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	ledger, err := usage.NewLedger(db, logger)
	require.NoError(t, err)

	handler := NewMultiSendHandler(MultiSendConfig{
		Store:        store,
		Tracker:      conversation.NewTracker(store, logger),
		Catalog:      cat,
		Providers:    registry,
		Orchestrator: collaboration.NewOrchestrator(logger, nil),
		Ledger:       ledger,
		Logger:       logger,
	})

	return &multiSendFixture{handler: handler, store: store, ledger: ledger, convID: convID}
}

func postMultiSend(t *testing.T, h *MultiSendHandler, userID, plan string, body MultiSendRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/v1/chat/multi-send", bytes.NewReader(payload))
	ctx := r.Context()
	if userID != "" {
		ctx = ctxkeys.WithUserID(ctx, userID)
		ctx = ctxkeys.WithPlan(ctx, plan)
	}
	w := httptest.NewRecorder()
	h.HandleMultiSend(w, r.WithContext(ctx))
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var envelope Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestMultiSend_HappyPath(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID,
		Message:        "hello panel",
		AgentIDs:       []string{"alpha", "beta"},
		Mode:           "parallel",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	require.True(t, envelope.Success)

	var data MultiSendResponse
	raw, _ := json.Marshal(envelope.Data)
	require.NoError(t, json.Unmarshal(raw, &data))

	assert.Equal(t, f.convID, data.ConversationID)
	assert.Equal(t, 1, data.ConfigVersion)
	require.Len(t, data.Responses, 2)
	assert.Equal(t, "alpha", data.Responses[0].AgentID)
	assert.Equal(t, "beta", data.Responses[1].AgentID)
	assert.Equal(t, 2, data.Summary.TotalAgents)
	assert.Equal(t, 30, data.Summary.TotalTokens)
	assert.Equal(t, 2, data.Summary.SuccessCount)
	assert.Equal(t, 0, data.Summary.ErrorCount)

	// Two messages persisted, both stamped with version 1.
	conv, err := f.store.Get(context.Background(), f.convID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, types.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hello panel", conv.Messages[0].Content)
	require.NotNil(t, conv.Messages[0].ConfigVersion)
	assert.Equal(t, 1, conv.Messages[0].ConfigVersion.Version)
	assert.True(t, conv.Messages[1].MultiAgent)
	require.Len(t, conv.Messages[1].AgentResponses, 2)

	// Usage rows exist for both agents.
	count, err := f.ledger.MonthlyResponseCount(context.Background(), "user-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMultiSend_SynthesisPersistsExtraMessage(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID,
		Message:        "synthesize this",
		AgentIDs:       []string{"alpha", "beta"},
		Mode:           "synthesis",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	conv, err := f.store.Get(context.Background(), f.convID)
	require.NoError(t, err)
	// user + multi-agent + synthesis
	require.Len(t, conv.Messages, 3)
	assert.False(t, conv.Messages[2].MultiAgent)
	assert.NotEmpty(t, conv.Messages[2].Content)
}

func TestMultiSend_PartialFailureStillSucceeds(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID,
		Message:        "hello",
		AgentIDs:       []string{"alpha", "broken"},
		Mode:           "parallel",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	var data MultiSendResponse
	raw, _ := json.Marshal(envelope.Data)
	require.NoError(t, json.Unmarshal(raw, &data))

	assert.Equal(t, 1, data.Summary.SuccessCount)
	assert.Equal(t, 1, data.Summary.ErrorCount)
	assert.Equal(t, types.StatusError, data.Responses[1].Status)
	assert.Equal(t, types.ErrProviderError, data.Responses[1].ErrorCode)
}

func TestMultiSend_ConfigVersionAdvancesOnChange(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID, Message: "first", AgentIDs: []string{"alpha"}, Mode: "parallel",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Same config, same version.
	w = postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID, Message: "second", AgentIDs: []string{"alpha"}, Mode: "parallel",
	})
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	var data MultiSendResponse
	raw, _ := json.Marshal(envelope.Data)
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, 1, data.ConfigVersion)

	// Changed panel, new version.
	w = postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID, Message: "third", AgentIDs: []string{"alpha", "beta"}, Mode: "parallel",
	})
	require.Equal(t, http.StatusOK, w.Code)
	envelope = decodeEnvelope(t, w)
	raw, _ = json.Marshal(envelope.Data)
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, 2, data.ConfigVersion)
}

func TestMultiSend_Unauthenticated(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "", "", MultiSendRequest{
		ConversationID: f.convID, Message: "hello", AgentIDs: []string{"alpha"}, Mode: "parallel",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMultiSend_ValidationErrors(t *testing.T) {
	f := setupMultiSend(t)

	tooMany := make([]string, collaboration.MaxAgentsPerTurn+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("agent-%d", i)
	}

	tests := []struct {
		name string
		req  MultiSendRequest
		code string
	}{
		{"missing conversation", MultiSendRequest{Message: "m", AgentIDs: []string{"alpha"}, Mode: "parallel"}, "INVALID_ARGUMENT"},
		{"blank message", MultiSendRequest{ConversationID: f.convID, Message: "   ", AgentIDs: []string{"alpha"}, Mode: "parallel"}, "INVALID_ARGUMENT"},
		{"no agents", MultiSendRequest{ConversationID: f.convID, Message: "m", Mode: "parallel"}, "INVALID_ARGUMENT"},
		{"too many agents", MultiSendRequest{ConversationID: f.convID, Message: "m", AgentIDs: tooMany, Mode: "parallel"}, "INVALID_ARGUMENT"},
		{"bad mode", MultiSendRequest{ConversationID: f.convID, Message: "m", AgentIDs: []string{"alpha"}, Mode: "tribunal"}, "INVALID_ARGUMENT"},
		{"unknown agent", MultiSendRequest{ConversationID: f.convID, Message: "m", AgentIDs: []string{"ghost"}, Mode: "parallel"}, "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postMultiSend(t, f.handler, "user-1", "pro", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			envelope := decodeEnvelope(t, w)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.code, envelope.Error.Code)
		})
	}
}

func TestMultiSend_PremiumAgentNeedsUpgrade(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "user-1", catalog.PlanFree, MultiSendRequest{
		ConversationID: f.convID, Message: "hello", AgentIDs: []string{"alpha", "prem"}, Mode: "parallel",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NEEDS_UPGRADE", envelope.Error.Code)
}

func TestMultiSend_ConversationNotFound(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: "nope", Message: "hello", AgentIDs: []string{"alpha"}, Mode: "parallel",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMultiSend_OwnershipEnforced(t *testing.T) {
	f := setupMultiSend(t)

	w := postMultiSend(t, f.handler, "intruder", "pro", MultiSendRequest{
		ConversationID: f.convID, Message: "hello", AgentIDs: []string{"alpha"}, Mode: "parallel",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ACCESS_DENIED", envelope.Error.Code)

	// Nothing was persisted.
	conv, err := f.store.Get(context.Background(), f.convID)
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
	assert.Empty(t, conv.ConfigHistory)
}

func TestMultiSend_QuotaExceeded(t *testing.T) {
	f := setupMultiSend(t)

	// Exhaust the free quota directly through the ledger.
	responses := make([]types.AgentResponse, usage.FreeMonthlyQuota)
	for i := range responses {
		responses[i] = types.AgentResponse{AgentID: "alpha", Model: "gpt-4", Status: types.StatusOK, Tokens: 1}
	}
	require.NoError(t, f.ledger.RecordTurn(context.Background(), "user-1", f.convID, "parallel", responses))

	w := postMultiSend(t, f.handler, "user-1", catalog.PlanFree, MultiSendRequest{
		ConversationID: f.convID, Message: "hello", AgentIDs: []string{"alpha"}, Mode: "parallel",
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "QUOTA_EXCEEDED", envelope.Error.Code)
}

func TestMultiSend_ContextCarriedAcrossTurns(t *testing.T) {
	f := setupMultiSend(t)

	var seen []types.ChatMessage
	reg := provider.NewRegistry(zaptest.NewLogger(t))
	reg.Register("alpha", provider.CapabilityFunc(func(ctx context.Context, msgs []types.ChatMessage) (*provider.Invocation, error) {
		seen = append([]types.ChatMessage(nil), msgs...)
		return &provider.Invocation{Content: "answer", TotalTokens: 5, Cost: 0.001}, nil
	}))
	f.handler.providers = reg

	w := postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID, Message: "first question", AgentIDs: []string{"alpha"}, Mode: "sequential",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postMultiSend(t, f.handler, "user-1", "pro", MultiSendRequest{
		ConversationID: f.convID, Message: "second question", AgentIDs: []string{"alpha"}, Mode: "sequential",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The second turn's prompt includes the first turn flattened.
	var all string
	for _, m := range seen {
		all += m.Content + "\n"
	}
	assert.Contains(t, all, "first question")
	assert.Contains(t, all, "Alpha: answer")
	assert.Contains(t, all, "second question")
}

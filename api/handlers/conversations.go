package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hykang/chorus/conversation"
	"github.com/hykang/chorus/types"
)

// CreateConversationRequest is the POST body for a new conversation.
type CreateConversationRequest struct {
	// Model optionally sets the legacy single-agent model.
	Model string `json:"model,omitempty"`
}

// ConversationsHandler manages conversation documents.
type ConversationsHandler struct {
	store  conversation.Store
	logger *zap.Logger
}

// NewConversationsHandler creates the conversations handler.
func NewConversationsHandler(store conversation.Store, logger *zap.Logger) *ConversationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationsHandler{store: store, logger: logger.With(zap.String("handler", "conversations"))}
}

// HandleCreate serves POST /v1/conversations.
func (h *ConversationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	userID, _, ok := RequireUser(w, r, h.logger)
	if !ok {
		return
	}

	now := time.Now().UTC()
	conv := &types.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Model:     req.Model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Create(r.Context(), conv); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)
	WriteSuccess(w, r, conv)
}

// HandleGet serves GET /v1/conversations/{id}.
func (h *ConversationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := RequireUser(w, r, h.logger)
	if !ok {
		return
	}

	id := conversationID(r)
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidArgument, "conversation id is required", h.logger)
		return
	}

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			WriteErrorMessage(w, r, http.StatusNotFound, types.ErrNotFound, "conversation not found", h.logger)
			return
		}
		WriteError(w, r, err, h.logger)
		return
	}
	if conv.UserID != userID {
		WriteErrorMessage(w, r, http.StatusForbidden, types.ErrAccessDenied, "conversation belongs to another user", h.logger)
		return
	}

	WriteSuccess(w, r, conv)
}

// HandleDelete serves DELETE /v1/conversations/{id}.
func (h *ConversationsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := RequireUser(w, r, h.logger)
	if !ok {
		return
	}

	id := conversationID(r)
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidArgument, "conversation id is required", h.logger)
		return
	}

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			WriteErrorMessage(w, r, http.StatusNotFound, types.ErrNotFound, "conversation not found", h.logger)
			return
		}
		WriteError(w, r, err, h.logger)
		return
	}
	if conv.UserID != userID {
		WriteErrorMessage(w, r, http.StatusForbidden, types.ErrAccessDenied, "conversation belongs to another user", h.logger)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, map[string]string{"deleted": id})
}

// conversationID extracts the trailing path segment.
func conversationID(r *http.Request) string {
	path := strings.TrimSuffix(r.URL.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}

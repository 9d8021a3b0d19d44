package conversation

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hykang/chorus/types"
)

// AgentIDsEqual reports whether two agent-identifier sets are equal,
// ignoring order. Duplicates are significant: a caller passing the same
// ID twice is a bug worth surfacing, not silently deduplicating.
func AgentIDsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Tracker reconciles a conversation's config history against the agent
// set and mode requested for a new turn. Reconcile is the only
// operation that appends to ConfigHistory, and it must run before
// context extraction on every turn so that the extractor and all
// strategies observe a consistent version.
type Tracker struct {
	store  Store
	logger *zap.Logger
}

// NewTracker creates a config version tracker over the given store.
func NewTracker(store Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:  store,
		logger: logger.With(zap.String("component", "config_tracker")),
	}
}

// Reconcile checks whether the requested agent set or mode differs from
// the conversation's last config snapshot and, if so, appends a new
// snapshot with the next version. The returned version is the one every
// message of this turn must carry.
//
// An empty history is reconciled first: when the conversation carries a
// legacy single-agent model, an implicit version-1 snapshot is
// synthesized from it before the request is evaluated; otherwise the
// request itself becomes version 1.
func (t *Tracker) Reconcile(ctx context.Context, conversationID, requesterID string, agentIDs []string, mode string) (int, error) {
	conv, err := t.store.Get(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return 0, types.NewError(types.ErrNotFound, "conversation "+conversationID+" not found").WithHTTPStatus(404)
	}
	if err != nil {
		return 0, types.NewError(types.ErrInternalError, "load conversation").WithCause(err).WithHTTPStatus(500)
	}

	// Ownership is enforced before any mutation.
	if conv.UserID != requesterID {
		return 0, types.NewError(types.ErrAccessDenied, "conversation does not belong to requester").WithHTTPStatus(403)
	}

	history := conv.ConfigHistory

	var implicit *types.ConfigSnapshot
	if len(history) == 0 {
		if conv.Model == "" {
			// Nothing to protect: the request is the first config.
			first := types.ConfigSnapshot{
				Version:       1,
				AgentIDs:      append([]string(nil), agentIDs...),
				Mode:          mode,
				ChangedAt:     time.Now(),
				ChangedByUser: true,
			}
			if err := t.store.AppendConfigSnapshot(ctx, conversationID, first); err != nil {
				return 0, types.NewError(types.ErrInternalError, "append config snapshot").WithCause(err).WithHTTPStatus(500)
			}
			t.logger.Info("config initialized",
				zap.String("conversation_id", conversationID),
				zap.Int("version", 1),
				zap.String("mode", mode),
			)
			return 1, nil
		}

		// Legacy conversation: synthesize version 1 from the single
		// model that produced its unversioned history.
		implicit = &types.ConfigSnapshot{
			Version:       1,
			AgentIDs:      []string{conv.Model},
			Mode:          types.ModeSingle,
			ChangedAt:     conv.CreatedAt,
			ChangedByUser: false,
		}
		history = []types.ConfigSnapshot{*implicit}
	}

	last := history[len(history)-1]
	if AgentIDsEqual(agentIDs, last.AgentIDs) && mode == last.Mode {
		t.logger.Debug("config unchanged",
			zap.String("conversation_id", conversationID),
			zap.Int("version", last.Version),
		)
		return last.Version, nil
	}

	// The implicit legacy snapshot is persisted only once a real change
	// forces the history into existence.
	if implicit != nil {
		if err := t.store.AppendConfigSnapshot(ctx, conversationID, *implicit); err != nil {
			return 0, types.NewError(types.ErrInternalError, "append legacy snapshot").WithCause(err).WithHTTPStatus(500)
		}
	}

	next := types.ConfigSnapshot{
		Version:       last.Version + 1,
		AgentIDs:      append([]string(nil), agentIDs...),
		Mode:          mode,
		ChangedAt:     time.Now(),
		ChangedByUser: true,
	}
	if err := t.store.AppendConfigSnapshot(ctx, conversationID, next); err != nil {
		return 0, types.NewError(types.ErrInternalError, "append config snapshot").WithCause(err).WithHTTPStatus(500)
	}

	t.logger.Info("config version advanced",
		zap.String("conversation_id", conversationID),
		zap.Int("previous_version", last.Version),
		zap.Int("version", next.Version),
		zap.Strings("agent_ids", agentIDs),
		zap.String("mode", mode),
	)
	return next.Version, nil
}

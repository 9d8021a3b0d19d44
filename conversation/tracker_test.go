package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/hykang/chorus/types"
)

func TestAgentIDsEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"both empty", nil, nil, true},
		{"same order", []string{"a", "b"}, []string{"a", "b"}, true},
		{"different order", []string{"b", "a"}, []string{"a", "b"}, true},
		{"different length", []string{"a"}, []string{"a", "b"}, false},
		{"different elements", []string{"a", "c"}, []string{"a", "b"}, false},
		{"duplicates significant", []string{"a", "a"}, []string{"a"}, false},
		{"duplicate counts differ", []string{"a", "a", "b"}, []string{"a", "b", "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgentIDsEqual(tt.a, tt.b))
			assert.Equal(t, tt.want, AgentIDsEqual(tt.b, tt.a))
		})
	}
}

func TestAgentIDsEqual_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()
	a := []string{"c", "a", "b"}
	b := []string{"b", "c", "a"}
	AgentIDsEqual(a, b)
	assert.Equal(t, []string{"c", "a", "b"}, a)
	assert.Equal(t, []string{"b", "c", "a"}, b)
}

func TestAgentIDsEqual_PermutationProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		ids := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 8).Draw(rt, "ids")

		perm := append([]string(nil), ids...)
		idx := rapid.Permutation(intRange(len(perm))).Draw(rt, "perm")
		shuffled := make([]string, len(perm))
		for i, j := range idx {
			shuffled[i] = perm[j]
		}

		if !AgentIDsEqual(ids, shuffled) {
			rt.Fatalf("permutation of %v reported unequal: %v", ids, shuffled)
		}
	})
}

func intRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func newTrackedConversation(t *testing.T, model string) (*Tracker, *MemoryStore, string) {
	t.Helper()
	store := NewMemoryStore()
	conv := &types.Conversation{
		ID:        "conv-1",
		UserID:    "user-1",
		Model:     model,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Create(context.Background(), conv))
	return NewTracker(store, zap.NewNop()), store, conv.ID
}

func TestTracker_FirstConfig_NoLegacyModel(t *testing.T) {
	t.Parallel()
	tracker, store, id := newTrackedConversation(t, "")

	v, err := tracker.Reconcile(context.Background(), id, "user-1", []string{"gpt", "claude"}, "parallel")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	conv, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, conv.ConfigHistory, 1)
	assert.True(t, conv.ConfigHistory[0].ChangedByUser)
}

func TestTracker_FirstConfig_LegacyModelSynthesized(t *testing.T) {
	t.Parallel()
	tracker, store, id := newTrackedConversation(t, "gpt-3.5-turbo")

	v, err := tracker.Reconcile(context.Background(), id, "user-1", []string{"gpt", "claude"}, "parallel")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	conv, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, conv.ConfigHistory, 2)

	legacy := conv.ConfigHistory[0]
	assert.Equal(t, 1, legacy.Version)
	assert.Equal(t, []string{"gpt-3.5-turbo"}, legacy.AgentIDs)
	assert.Equal(t, types.ModeSingle, legacy.Mode)
	assert.False(t, legacy.ChangedByUser)

	assert.Equal(t, 2, conv.ConfigHistory[1].Version)
}

func TestTracker_Idempotent(t *testing.T) {
	t.Parallel()
	tracker, store, id := newTrackedConversation(t, "")

	ctx := context.Background()
	v1, err := tracker.Reconcile(ctx, id, "user-1", []string{"a", "b"}, "debate")
	require.NoError(t, err)
	v2, err := tracker.Reconcile(ctx, id, "user-1", []string{"b", "a"}, "debate")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)

	conv, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, conv.ConfigHistory, 1)
}

func TestTracker_ModeChangeAdvancesVersion(t *testing.T) {
	t.Parallel()
	tracker, _, id := newTrackedConversation(t, "")

	ctx := context.Background()
	v1, err := tracker.Reconcile(ctx, id, "user-1", []string{"a", "b"}, "parallel")
	require.NoError(t, err)
	v2, err := tracker.Reconcile(ctx, id, "user-1", []string{"a", "b"}, "debate")
	require.NoError(t, err)

	assert.Equal(t, v1+1, v2)
}

func TestTracker_NotFound(t *testing.T) {
	t.Parallel()
	tracker := NewTracker(NewMemoryStore(), zap.NewNop())

	_, err := tracker.Reconcile(context.Background(), "missing", "user-1", []string{"a"}, "parallel")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestTracker_AccessDenied(t *testing.T) {
	t.Parallel()
	tracker, store, id := newTrackedConversation(t, "")

	_, err := tracker.Reconcile(context.Background(), id, "intruder", []string{"a"}, "parallel")
	require.Error(t, err)
	assert.Equal(t, types.ErrAccessDenied, types.GetErrorCode(err))

	// Denied requests never mutate the document.
	conv, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, conv.ConfigHistory)
}

// Versions returned across any reconcile sequence are non-decreasing
// and every change is exactly +1.
func TestTracker_MonotonicityProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Create(context.Background(), &types.Conversation{
			ID:     "conv-prop",
			UserID: "u",
		}))
		tracker := NewTracker(store, zap.NewNop())

		modes := []string{"sequential", "parallel", "debate", "synthesis"}
		prev := 0
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			ids := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c"}), 1, 3).Draw(rt, "ids")
			mode := rapid.SampledFrom(modes).Draw(rt, "mode")

			v, err := tracker.Reconcile(context.Background(), "conv-prop", "u", ids, mode)
			if err != nil {
				rt.Fatalf("reconcile: %v", err)
			}
			if v < prev {
				rt.Fatalf("version decreased: %d -> %d", prev, v)
			}
			if v != prev && v != prev+1 {
				rt.Fatalf("version jumped: %d -> %d", prev, v)
			}
			prev = v
		}
	})
}

package provider

import (
	"context"
	"errors"

	"github.com/hykang/chorus/types"
)

// Invocation is the result of one capability call.
type Invocation struct {
	Content          string  `json:"content"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// Capability is a callable language-model agent. Invoke blocks until
// the remote call settles; timeout and retry policy belong to the
// implementation, not to the caller.
type Capability interface {
	Invoke(ctx context.Context, messages []types.ChatMessage) (*Invocation, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, messages []types.ChatMessage) (*Invocation, error)

// Invoke implements Capability.
func (f CapabilityFunc) Invoke(ctx context.Context, messages []types.ChatMessage) (*Invocation, error) {
	return f(ctx, messages)
}

// CapabilityProvider resolves an agent identifier to its capability.
type CapabilityProvider interface {
	Capability(agentID string) (Capability, error)
}

// Classify maps a capability error to one of the per-agent error
// classes. Strategies record the class on the failed response entry;
// the error itself never propagates past the strategy.
func Classify(err error) types.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ErrTimeout
	}
	switch types.GetErrorCode(err) {
	case types.ErrTimeout:
		return types.ErrTimeout
	case types.ErrInvalidResponse:
		return types.ErrInvalidResponse
	default:
		return types.ErrProviderError
	}
}

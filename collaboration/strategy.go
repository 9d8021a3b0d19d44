package collaboration

import (
	"context"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/provider"
	"github.com/hykang/chorus/types"
)

// Mode selects a collaboration strategy.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
	ModeDebate     Mode = "debate"
	ModeSynthesis  Mode = "synthesis"
)

// Modes lists the supported collaboration modes.
func Modes() []Mode {
	return []Mode{ModeSequential, ModeParallel, ModeDebate, ModeSynthesis}
}

// Valid reports whether m is one of the four supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeDebate, ModeSynthesis:
		return true
	}
	return false
}

// DefaultDebateRounds is the number of debate rounds when the caller
// does not specify one.
const DefaultDebateRounds = 2

// AgentCapability pairs an agent's reference data with its callable.
type AgentCapability struct {
	Agent      catalog.Agent
	Capability provider.Capability
}

// TurnInput is the common input to every strategy: the extracted
// compatible context, the new user message and the agents to run, in
// caller order.
type TurnInput struct {
	Context     []types.ChatMessage
	UserMessage string
	Agents      []AgentCapability

	// Rounds applies to debate only; zero means DefaultDebateRounds.
	Rounds int
}

// Totals aggregates usage and outcome counts across one invocation.
type Totals struct {
	Tokens       int     `json:"tokens"`
	Cost         float64 `json:"cost"`
	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
}

// Result is the uniform envelope every strategy produces. Responses
// are ordered by the caller-supplied agent order regardless of
// completion order. Synthesis is set only by the synthesis strategy,
// and only when its final pass succeeded.
type Result struct {
	Mode      Mode                  `json:"mode"`
	Responses []types.AgentResponse `json:"responses"`
	Synthesis string                `json:"synthesis,omitempty"`
	Totals    Totals                `json:"totals"`
}

// Strategy executes one collaboration mode. Implementations must
// capture per-agent failures as status=error entries and must not
// return an error for them; a strategy error means the turn could not
// run at all.
type Strategy interface {
	Execute(ctx context.Context, input *TurnInput) (*Result, error)
}

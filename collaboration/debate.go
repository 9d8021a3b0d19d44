package collaboration

import (
	"context"

	"go.uber.org/zap"

	"github.com/hykang/chorus/types"
)

// debateFraming is appended to each agent's system prompt during a
// debate so the model knows it is arguing against a panel.
const debateFraming = "You are taking part in a multi-agent debate. " +
	"Review the other panelists' latest positions, challenge weak arguments, and defend or revise your own."

// DebateStrategy runs a fixed number of parallel rounds. Round 1 is a
// plain fan-out; every later round feeds each agent the full panel's
// previous-round output, labeled by agent name. Only the final round's
// responses are returned, but token and cost totals cover every round,
// since billing reflects actual compute.
type DebateStrategy struct {
	logger *zap.Logger
}

// NewDebateStrategy creates the multi-round debate strategy.
func NewDebateStrategy(logger *zap.Logger) *DebateStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebateStrategy{logger: logger.With(zap.String("strategy", "debate"))}
}

// Execute implements Strategy.
func (s *DebateStrategy) Execute(ctx context.Context, input *TurnInput) (*Result, error) {
	rounds := input.Rounds
	if rounds <= 0 {
		rounds = DefaultDebateRounds
	}

	result := &Result{Mode: ModeDebate}

	var previous []types.AgentResponse
	for round := 1; round <= rounds; round++ {
		s.logger.Debug("debate round", zap.Int("round", round), zap.Int("rounds", rounds))

		panel := labelResponses(previous)
		current := fanOut(ctx, input.Agents, func(ac AgentCapability) []types.ChatMessage {
			userContent := input.UserMessage
			if panel != "" {
				userContent += "\n\n" + panel
			}
			framed := ac
			if framed.Agent.SystemPrompt == "" {
				framed.Agent.SystemPrompt = debateFraming
			} else {
				framed.Agent.SystemPrompt += "\n\n" + debateFraming
			}
			return buildMessages(framed, input.Context, userContent)
		}, s.logger)

		// Usage accrues every round, including the discarded ones.
		for _, r := range current {
			if r.Status == types.StatusOK {
				result.Totals.Tokens += r.Tokens
				result.Totals.Cost += r.Cost
			}
		}

		previous = current
	}

	result.Responses = previous
	return result, nil
}

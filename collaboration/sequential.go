package collaboration

import (
	"context"

	"go.uber.org/zap"

	"github.com/hykang/chorus/types"
)

// SequentialStrategy runs agents one at a time in caller order. Each
// agent sees the user message plus every successful prior output of
// this turn, labeled by agent name. A failed agent contributes nothing
// downstream; later agents never see a placeholder for it.
type SequentialStrategy struct {
	logger *zap.Logger
}

// NewSequentialStrategy creates the sequential pipeline strategy.
func NewSequentialStrategy(logger *zap.Logger) *SequentialStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequentialStrategy{logger: logger.With(zap.String("strategy", "sequential"))}
}

// Execute implements Strategy.
func (s *SequentialStrategy) Execute(ctx context.Context, input *TurnInput) (*Result, error) {
	result := &Result{
		Mode:      ModeSequential,
		Responses: make([]types.AgentResponse, 0, len(input.Agents)),
	}

	accumulated := input.UserMessage
	for i, ac := range input.Agents {
		s.logger.Debug("pipeline stage",
			zap.Int("stage", i+1),
			zap.String("agent_id", ac.Agent.ID),
		)

		resp := invokeAgent(ctx, ac, buildMessages(ac, input.Context, accumulated), s.logger)
		result.Responses = append(result.Responses, resp)

		if resp.Status == types.StatusOK {
			accumulated += "\n\n[" + resp.AgentName + "]\n" + resp.Content
			result.Totals.Tokens += resp.Tokens
			result.Totals.Cost += resp.Cost
		}
	}

	return result, nil
}

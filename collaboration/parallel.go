package collaboration

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hykang/chorus/types"
)

// ParallelStrategy invokes all agents concurrently against the
// identical input. Wall-clock latency is bounded by the slowest agent;
// each agent's outcome is independent. The response list follows the
// caller-supplied agent order regardless of completion order.
type ParallelStrategy struct {
	logger *zap.Logger
}

// NewParallelStrategy creates the parallel fan-out strategy.
func NewParallelStrategy(logger *zap.Logger) *ParallelStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParallelStrategy{logger: logger.With(zap.String("strategy", "parallel"))}
}

// Execute implements Strategy.
func (s *ParallelStrategy) Execute(ctx context.Context, input *TurnInput) (*Result, error) {
	responses := fanOut(ctx, input.Agents, func(ac AgentCapability) []types.ChatMessage {
		return buildMessages(ac, input.Context, input.UserMessage)
	}, s.logger)

	result := &Result{Mode: ModeParallel, Responses: responses}
	for _, r := range responses {
		if r.Status == types.StatusOK {
			result.Totals.Tokens += r.Tokens
			result.Totals.Cost += r.Cost
		}
	}
	return result, nil
}

// fanOut runs one capability call per agent concurrently and waits for
// every call to settle. Each goroutine writes its own slot, so the
// output preserves input order without post-hoc sorting; a hung agent
// delays only the final join, never the collection of its siblings.
func fanOut(ctx context.Context, agents []AgentCapability, prompt func(AgentCapability) []types.ChatMessage, logger *zap.Logger) []types.AgentResponse {
	responses := make([]types.AgentResponse, len(agents))

	var wg sync.WaitGroup
	for i, ac := range agents {
		wg.Add(1)
		go func(i int, ac AgentCapability) {
			defer wg.Done()
			responses[i] = invokeAgent(ctx, ac, prompt(ac), logger)
		}(i, ac)
	}
	wg.Wait()

	return responses
}

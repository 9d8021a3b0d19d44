package collaboration

import (
	"context"

	"go.uber.org/zap"

	"github.com/hykang/chorus/types"
)

// synthesisFraming precedes the panel's outputs in the synthesis pass.
const synthesisFraming = "Several experts have analyzed the question below. " +
	"Synthesize their analyses into one consolidated answer: note where they agree, " +
	"where they disagree, and what you recommend overall."

// SynthesisStrategy fans out like Parallel, then asks one designated
// agent (the first by default) to consolidate the panel's outputs. The
// synthesis text is a separate result field; if the synthesis pass
// fails, the per-agent responses are still returned.
type SynthesisStrategy struct {
	logger *zap.Logger

	// SynthesizerID optionally designates the consolidating agent.
	// Empty means the first agent in caller order.
	SynthesizerID string
}

// NewSynthesisStrategy creates the fan-out-then-synthesize strategy.
func NewSynthesisStrategy(logger *zap.Logger) *SynthesisStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SynthesisStrategy{logger: logger.With(zap.String("strategy", "synthesis"))}
}

// Execute implements Strategy.
func (s *SynthesisStrategy) Execute(ctx context.Context, input *TurnInput) (*Result, error) {
	responses := fanOut(ctx, input.Agents, func(ac AgentCapability) []types.ChatMessage {
		return buildMessages(ac, input.Context, input.UserMessage)
	}, s.logger)

	result := &Result{Mode: ModeSynthesis, Responses: responses}
	for _, r := range responses {
		if r.Status == types.StatusOK {
			result.Totals.Tokens += r.Tokens
			result.Totals.Cost += r.Cost
		}
	}

	synthesizer := s.pickSynthesizer(input.Agents)

	prompt := synthesisFraming +
		"\n\nOriginal question:\n" + input.UserMessage +
		"\n\nExpert analyses:\n\n" + labelResponses(responses)

	synth := invokeAgent(ctx, synthesizer, buildMessages(synthesizer, input.Context, prompt), s.logger)
	if synth.Status != types.StatusOK {
		// Degrade gracefully: the fan-out already succeeded.
		s.logger.Warn("synthesis pass failed",
			zap.String("agent_id", synthesizer.Agent.ID),
			zap.String("error_code", string(synth.ErrorCode)),
		)
		return result, nil
	}

	result.Synthesis = synth.Content
	result.Totals.Tokens += synth.Tokens
	result.Totals.Cost += synth.Cost
	return result, nil
}

func (s *SynthesisStrategy) pickSynthesizer(agents []AgentCapability) AgentCapability {
	if s.SynthesizerID != "" {
		for _, ac := range agents {
			if ac.Agent.ID == s.SynthesizerID {
				return ac
			}
		}
	}
	return agents[0]
}

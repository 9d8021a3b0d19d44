package collaboration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hykang/chorus/internal/metrics"
	"github.com/hykang/chorus/types"
)

// MaxAgentsPerTurn caps how many agents one turn may run.
const MaxAgentsPerTurn = 10

// Request is the orchestrator's input for one turn.
type Request struct {
	Mode        Mode
	Agents      []AgentCapability
	UserMessage string
	Context     []types.ChatMessage

	// Rounds applies to debate only; zero means DefaultDebateRounds.
	Rounds int
}

// Orchestrator dispatches a turn to the strategy selected by mode and
// finalizes the result envelope: usage totals plus success and error
// counts over the per-agent response list. It performs no retries;
// retry policy belongs to the capability provider.
type Orchestrator struct {
	strategies map[Mode]Strategy
	logger     *zap.Logger
	collector  *metrics.Collector
	tracer     trace.Tracer
}

// NewOrchestrator creates an orchestrator with the four standard
// strategies. collector may be nil.
func NewOrchestrator(logger *zap.Logger, collector *metrics.Collector) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		strategies: map[Mode]Strategy{
			ModeSequential: NewSequentialStrategy(logger),
			ModeParallel:   NewParallelStrategy(logger),
			ModeDebate:     NewDebateStrategy(logger),
			ModeSynthesis:  NewSynthesisStrategy(logger),
		},
		logger:    logger.With(zap.String("component", "orchestrator")),
		collector: collector,
		tracer:    otel.Tracer("chorus/collaboration"),
	}
}

// Run validates the request, executes the selected strategy, and
// aggregates totals. Validation failures surface before any agent is
// invoked; per-agent failures never surface as a Run error.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(
			attribute.String("collaboration.mode", string(req.Mode)),
			attribute.Int("collaboration.agents", len(req.Agents)),
		),
	)
	defer span.End()

	o.logger.Info("collaboration started",
		zap.String("mode", string(req.Mode)),
		zap.Int("agents", len(req.Agents)),
	)

	start := time.Now()
	result, err := o.strategies[req.Mode].Execute(ctx, &TurnInput{
		Context:     req.Context,
		UserMessage: req.UserMessage,
		Agents:      req.Agents,
		Rounds:      req.Rounds,
	})
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		o.collector.RecordOrchestration(string(req.Mode), "error", duration)
		return nil, err
	}

	o.finalize(result)

	span.SetAttributes(
		attribute.Int("collaboration.tokens", result.Totals.Tokens),
		attribute.Int("collaboration.success_count", result.Totals.SuccessCount),
		attribute.Int("collaboration.error_count", result.Totals.ErrorCount),
	)

	o.collector.RecordOrchestration(string(req.Mode), "ok", duration)
	for _, r := range result.Responses {
		o.collector.RecordAgentCall(r.AgentID, string(r.Status))
		if r.Status == types.StatusOK {
			o.collector.RecordUsage(r.Model, r.Tokens, r.Cost)
		}
	}

	o.logger.Info("collaboration completed",
		zap.String("mode", string(req.Mode)),
		zap.Duration("duration", duration),
		zap.Int("success_count", result.Totals.SuccessCount),
		zap.Int("error_count", result.Totals.ErrorCount),
		zap.Int("total_tokens", result.Totals.Tokens),
	)
	return result, nil
}

func (o *Orchestrator) validate(req *Request) error {
	if req == nil {
		return types.NewError(types.ErrInvalidArgument, "request is nil").WithHTTPStatus(400)
	}
	if !req.Mode.Valid() {
		return types.NewError(types.ErrInvalidArgument, "unknown collaboration mode "+string(req.Mode)).WithHTTPStatus(400)
	}
	if len(req.Agents) == 0 {
		return types.NewError(types.ErrInvalidArgument, "at least one agent is required").WithHTTPStatus(400)
	}
	if len(req.Agents) > MaxAgentsPerTurn {
		return types.NewError(types.ErrInvalidArgument, "too many agents for one turn").WithHTTPStatus(400)
	}
	if req.UserMessage == "" {
		return types.NewError(types.ErrInvalidArgument, "user message is empty").WithHTTPStatus(400)
	}
	if req.Rounds < 0 {
		return types.NewError(types.ErrInvalidArgument, "rounds must be positive").WithHTTPStatus(400)
	}
	return nil
}

// finalize fills the outcome counts. Success and error counts cover the
// per-agent response list only; a failed synthesis pass has already
// degraded to an absent synthesis field and is not counted.
func (o *Orchestrator) finalize(result *Result) {
	result.Totals.SuccessCount = 0
	result.Totals.ErrorCount = 0
	for _, r := range result.Responses {
		if r.Status == types.StatusOK {
			result.Totals.SuccessCount++
		} else {
			result.Totals.ErrorCount++
		}
	}
}

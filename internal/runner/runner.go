package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/metrics"
	"github.com/petasbytes/shop-agent/internal/provider"
	"github.com/petasbytes/shop-agent/internal/telemetry"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

// DefaultMaxIterations bounds completion requests per interaction.
const DefaultMaxIterations = 10

// State is a step of the orchestration loop.
type State int

const (
	AwaitingCompletion State = iota
	DispatchingTools
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingCompletion:
		return "awaiting_completion"
	case DispatchingTools:
		return "dispatching_tools"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

type Runner struct {
	client        provider.Client
	registry      *tools.Registry
	dispatcher    *Dispatcher
	maxIterations int
}

type Option func(*Runner)

// WithMaxIterations caps completion requests per interaction. Values below 1
// keep the default.
func WithMaxIterations(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

func New(client provider.Client, reg *tools.Registry, opts ...Option) *Runner {
	r := &Runner{
		client:        client,
		registry:      reg,
		dispatcher:    NewDispatcher(reg),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Dispatcher() *Dispatcher { return r.dispatcher }

func (r *Runner) MaxIterations() int { return r.maxIterations }

// Run advances conv until the model produces a final answer and returns its
// text. The caller must hold the conversation for the whole call.
//
// Errors: *provider.CompletionError when the backend fails,
// *LoopDepthExceededError when the iteration cap is hit, and ErrInterrupted
// when ctx ends. In every case conv stays a valid transcript. A conv that
// arrives with broken tool call pairing is rejected untouched.
func (r *Runner) Run(ctx context.Context, conv *memory.Conversation) (string, error) {
	if err := conv.Validate(); err != nil {
		return "", fmt.Errorf("transcript: %w", err)
	}
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	decls := r.registry.Declarations()

	var (
		state      = AwaitingCompletion
		iterations int
		request    memory.Message
		final      string
		err        error
	)
	for state != Terminal {
		switch state {
		case AwaitingCompletion:
			if err = interrupted(ctx); err != nil {
				state = Terminal
				break
			}
			if iterations == r.maxIterations {
				err = &LoopDepthExceededError{Limit: r.maxIterations}
				state = Terminal
				break
			}
			iterations++

			var res provider.Result
			res, err = r.complete(ctx, turnID, iterations, conv.Messages(), decls)
			if err == nil {
				err = interrupted(ctx)
			}
			switch {
			case err != nil:
				state = Terminal
			case res.Kind != provider.ToolRequest || len(res.ToolCalls) == 0:
				final = res.Text
				conv.Append(memory.AssistantMessage(final))
				state = Terminal
			default:
				request = memory.AssistantToolCallMessage(res.Text, res.ToolCalls)
				state = DispatchingTools
			}

		case DispatchingTools:
			results := r.dispatcher.Dispatch(ctx, request.ToolCalls)
			if err = interrupted(ctx); err != nil {
				state = Terminal
				break
			}
			conv.Append(append([]memory.Message{request}, results...)...)
			state = AwaitingCompletion
		}
	}

	r.emitInteraction(turnID, conv, iterations, err)
	if err != nil {
		return "", err
	}
	return final, nil
}

func (r *Runner) complete(ctx context.Context, turnID string, iteration int, msgs []memory.Message, decls []tools.Declaration) (provider.Result, error) {
	start := time.Now()
	// The request runs to completion even if the caller goes away.
	res, err := r.client.Complete(context.WithoutCancel(ctx), msgs, decls)

	fields := map[string]any{
		"turn_id":     turnID,
		"iteration":   iteration,
		"provider":    r.client.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
		"tool_calls":  len(res.ToolCalls),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = errorKind(err)
		logger.WarnX("runner", "[Runner] completion failed on iteration %d: %v", iteration, err)
		err = fmt.Errorf("completion (iteration %d): %w", iteration, err)
	}
	telemetry.Emit("completion", fields)
	return res, err
}

func (r *Runner) emitInteraction(turnID string, conv *memory.Conversation, iterations int, err error) {
	outcome := "final"
	var depth *LoopDepthExceededError
	switch {
	case err == nil:
	case errors.Is(err, ErrInterrupted):
		outcome = "interrupted"
	case errors.As(err, &depth):
		outcome = "depth_exceeded"
	default:
		outcome = "completion_error"
	}
	if err != nil {
		logger.InfoX("runner", "[Runner] conversation %s ended with %s after %d completions", conv.ID(), outcome, iterations)
	}
	telemetry.Emit("interaction", map[string]any{
		"turn_id":         turnID,
		"conversation_id": conv.ID(),
		"iterations":      iterations,
		"outcome":         outcome,
		"transcript":      metrics.TranscriptShape(conv.Messages()),
	})
}

func interrupted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}

func errorKind(err error) string {
	var ce *provider.CompletionError
	if errors.As(err, &ce) {
		return ce.Kind.String()
	}
	return "error"
}

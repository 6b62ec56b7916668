package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-go-golems/handoff/pkg/directive"
	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/inference/engine"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// State of an agent run.
type State string

const (
	StateAwaitingResponse State = "awaiting_response"
	StateToolRequested    State = "tool_requested"
	StateTerminal         State = "terminal"
	StateFailed           State = "failed"
)

// Outcome is a successful agent run.
type Outcome struct {
	Terminal directive.Terminal `json:"terminal" yaml:"terminal"`
	Turns    []turns.AgentTurn  `json:"turns" yaml:"turns"`
}

// Runner drives one agent: request, tool calls, terminal answer.
type Runner struct {
	config     Config
	engine     engine.Engine
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	emitter    events.Emitter
}

func New(config Config, eng engine.Engine, registry *tools.Registry, emitter events.Emitter) (*Runner, error) {
	if eng == nil {
		return nil, errors.New("runner needs an engine")
	}
	if registry == nil {
		return nil, errors.New("runner needs a tool registry")
	}
	if config.TerminalSchema == nil {
		return nil, errors.Errorf("runner %s has no terminal schema", config.Role)
	}
	if config.MaxTurns <= 0 {
		config.MaxTurns = DefaultMaxTurns
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry.MaxAttempts = 1
	}
	return &Runner{
		config:     config,
		engine:     eng,
		registry:   registry,
		dispatcher: tools.NewDispatcher(registry, config.Tools, emitter),
		emitter:    emitter,
	}, nil
}

func (r *Runner) Role() turns.Role {
	return r.config.Role
}

func (r *Runner) Registry() *tools.Registry {
	return r.registry
}

// run is the state of a single Run call.
type run struct {
	*Runner
	history *turns.History
	state   State
	turn    int
}

// Run drives the agent to its terminal answer. Every error is a *StageError.
func (r *Runner) Run(ctx context.Context, input string) (*Outcome, error) {
	s := &run{
		Runner:  r,
		history: turns.NewHistory(r.config.Role, input),
		state:   StateAwaitingResponse,
	}
	r.emitter.Emit(events.KindStageStarted, map[string]any{"max_turns": r.config.MaxTurns})

	out, err := s.loop(ctx)
	if err != nil {
		s.transition(StateFailed)
		r.emitter.Emit(events.KindStageFailed, map[string]any{
			events.PayloadTurn:  s.turn,
			events.PayloadError: err.Error(),
		})
		log.Debug().Str("stage", string(r.config.Role)).Int("turn", s.turn).Err(err).Msg("agent failed")
		return nil, &StageError{Stage: r.config.Role, Turn: s.turn, Err: err}
	}

	s.transition(StateTerminal)
	r.emitter.Emit(events.KindStageCompleted, map[string]any{events.PayloadTurn: s.turn})
	return out, nil
}

func (s *run) loop(ctx context.Context) (*Outcome, error) {
	for s.turn = 1; s.turn <= s.config.MaxTurns; s.turn++ {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Err: err}
		}
		s.emitter.Emit(events.KindTurnStarted, map[string]any{events.PayloadTurn: s.turn})

		started := time.Now()
		resp, attempts, err := s.complete(ctx, s.request())
		if err != nil {
			return nil, err
		}
		at := turns.AgentTurn{Attempts: attempts, StartedAt: started}
		if s.turn == 1 {
			at.InputContext = s.history.Input()
		}

		log.Debug().
			Str("stage", string(s.config.Role)).
			Int("turn", s.turn).
			Int("attempts", attempts).
			Int("tool_calls", len(resp.ToolCalls)).
			Bool("structured", len(resp.Structured) > 0).
			Msg("agent response")

		switch {
		case len(resp.ToolCalls) > 0:
			s.transition(StateToolRequested)
			results, err := s.dispatcher.InvokeAll(tools.WithTurn(ctx, s.turn), resp.ToolCalls)
			if err != nil {
				if ctx.Err() != nil {
					return nil, &CancelledError{Err: ctx.Err()}
				}
				return nil, err
			}
			at.Output = turns.Output{Kind: turns.OutputToolCalls, Text: resp.Text, ToolCalls: resp.ToolCalls}
			at.Results = results
			at.Duration = time.Since(started)
			s.history.Append(at)
			s.transition(StateAwaitingResponse)

		case len(resp.Structured) > 0 || directive.LooksLikeObject(resp.Text):
			raw := string(resp.Structured)
			if raw == "" {
				raw = resp.Text
			}
			if json.Valid([]byte(raw)) {
				at.Output = turns.Output{Kind: turns.OutputTerminal, Terminal: json.RawMessage(raw)}
			} else {
				at.Output = turns.Output{Kind: turns.OutputText, Text: raw}
			}
			at.Duration = time.Since(started)
			s.history.Append(at)

			term, err := directive.Decode(raw, s.config.TerminalSchema)
			if err != nil {
				return nil, err
			}
			if report, ok := term.(*directive.ExecutionReport); ok {
				report.ActionsTaken = s.history.Results()
				if report.ActionsTaken == nil {
					report.ActionsTaken = []tools.Result{}
				}
			}
			return &Outcome{Terminal: term, Turns: s.history.Turns()}, nil

		default:
			at.Output = turns.Output{Kind: turns.OutputText, Text: resp.Text}
			at.Duration = time.Since(started)
			s.history.Append(at)
		}
	}

	s.turn = s.config.MaxTurns
	return nil, &TurnLimitExceededError{Limit: s.config.MaxTurns}
}

func (s *run) request() *engine.Request {
	return &engine.Request{
		Agent:          s.config.Role,
		Instructions:   s.config.Instructions,
		Messages:       s.history.Messages(),
		Tools:          engine.ToolSpecs(s.registry),
		TerminalSchema: s.config.TerminalSchema,
	}
}

// complete calls the engine, retrying transient failures with exponential
// backoff. A call that exceeds CallTimeout counts as transient.
func (s *run) complete(ctx context.Context, req *engine.Request) (*engine.Response, int, error) {
	attempts := 0
	op := func() (*engine.Response, error) {
		attempts++
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.config.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.config.CallTimeout)
		}
		defer cancel()

		resp, err := s.engine.Complete(callCtx, req)
		if err == nil {
			if resp == nil {
				return nil, backoff.Permanent(errors.New("engine returned no response"))
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || engine.IsRetryable(err) {
			log.Debug().Str("stage", string(s.config.Role)).Int("turn", s.turn).Int("attempt", attempts).Err(err).Msg("transient completion failure")
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	retry := s.config.Retry
	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     retry.InitialInterval,
			RandomizationFactor: retry.RandomizationFactor,
			Multiplier:          retry.Multiplier,
			MaxInterval:         retry.MaxInterval,
		}),
		backoff.WithMaxTries(uint(retry.MaxAttempts)),
		backoff.WithMaxElapsedTime(retry.MaxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Str("stage", string(s.config.Role)).Int("turn", s.turn).Dur("retry_in", next).Err(err).Msg("retrying completion")
		}),
	)
	if err == nil {
		return resp, attempts, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if ctx.Err() != nil {
		return nil, attempts, &CancelledError{Err: ctx.Err()}
	}
	if errors.Is(err, context.DeadlineExceeded) || engine.IsRetryable(err) {
		return nil, attempts, &engine.TransientError{Attempts: attempts, Err: err}
	}
	return nil, attempts, err
}

func (s *run) transition(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.emitter.Emit(events.KindStateChanged, map[string]any{
		"from":             string(from),
		"to":               string(to),
		events.PayloadTurn: s.turn,
	})
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Dispatcher validates and runs tool calls against one registry.
//
// Unknown tools and arguments that violate the tool schema are returned as
// errors: they mean the agent broke its contract and the stage must stop.
// Handler failures, panics and timeouts are returned as failure Results so
// the agent can react to them on its next turn.
type Dispatcher struct {
	registry *Registry
	config   Config
	emitter  events.Emitter
}

func NewDispatcher(registry *Registry, config Config, emitter events.Emitter) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		config:   config,
		emitter:  emitter,
	}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

type outcome struct {
	payload  any
	err      error
	panicked bool
}

// Invoke runs a single call.
func (d *Dispatcher) Invoke(ctx context.Context, call ToolCall) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrapf(err, "dispatch %s", call.Name)
	}

	tool, err := d.registry.Lookup(call.Name)
	if err != nil {
		return Result{}, err
	}
	if !allowed(d.registry.Ceiling(), tool.Mutability) {
		return Result{}, &CapabilityViolationError{Tool: tool.Name, Mutability: tool.Mutability, Ceiling: d.registry.Ceiling()}
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := tool.Parameters.Validate(args); err != nil {
		return Result{}, err
	}

	d.publishInvoked(ctx, call, args)

	start := time.Now()
	res, err := d.run(ctx, tool, call, args)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	d.publishResult(ctx, res)
	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, tool *Tool, call ToolCall, args json.RawMessage) (Result, error) {
	res := Result{CallID: call.ID, ToolName: call.Name}

	toolCtx := WithCurrentToolCall(ctx, call)
	cancel := func() {}
	if d.config.ExecutionTimeout > 0 {
		toolCtx, cancel = context.WithTimeout(toolCtx, d.config.ExecutionTimeout)
	}
	defer cancel()

	// buffered so an abandoned handler can still finish and be collected
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("tool", call.Name).Str("call_id", call.ID).Interface("panic", r).Msg("tool handler panicked")
				done <- outcome{err: fmt.Errorf("panic: %v", r), panicked: true}
			}
		}()
		payload, err := tool.Call(toolCtx, args)
		done <- outcome{payload: payload, err: err}
	}()

	var o outcome
	received := false
	select {
	case o = <-done:
		received = true
	case <-toolCtx.Done():
		select {
		case o = <-done:
			received = true
		default:
		}
	}

	if ctx.Err() != nil {
		return res, errors.Wrapf(ctx.Err(), "tool %s interrupted", call.Name)
	}
	timedOut := !received || (errors.Is(o.err, context.DeadlineExceeded) && toolCtx.Err() != nil)
	if timedOut {
		res.Status = StatusFailure
		res.FailureKind = FailureTimeout
		res.ErrorDetail = fmt.Sprintf("tool %s timed out after %s", call.Name, d.config.ExecutionTimeout)
		return res, nil
	}

	switch {
	case o.panicked:
		res.Status = StatusFailure
		res.FailureKind = FailurePanic
		res.ErrorDetail = o.err.Error()
	case o.err != nil:
		res.Status = StatusFailure
		res.FailureKind = FailureHandler
		res.ErrorDetail = o.err.Error()
		var pe *PartialEffectError
		if errors.As(o.err, &pe) {
			res.Partial = true
		}
	default:
		res.Status = StatusSuccess
		res.Payload = o.payload
	}
	return res, nil
}

// InvokeAll runs the calls of one model response concurrently and returns
// the results in call order. The first fatal error cancels the remaining
// calls.
func (d *Dispatcher) InvokeAll(ctx context.Context, calls []ToolCall) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(calls))
	for _, c := range calls {
		if _, dup := seen[c.ID]; dup {
			return nil, schema.NewViolation("tool_calls", "call_id", "unique call id per response", c.ID, "")
		}
		seen[c.ID] = struct{}{}
	}

	results := make([]Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.workers(len(calls)))
	for i, c := range calls {
		g.Go(func() error {
			r, err := d.Invoke(gctx, c)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Dispatcher) publishInvoked(ctx context.Context, call ToolCall, args json.RawMessage) {
	payload := map[string]any{
		events.PayloadCallID:    call.ID,
		events.PayloadTool:      call.Name,
		events.PayloadArguments: compactJSON(args),
	}
	if turn, ok := TurnFromContext(ctx); ok {
		payload[events.PayloadTurn] = turn
	}
	d.emitter.Emit(events.KindToolInvoked, payload)
}

func (d *Dispatcher) publishResult(ctx context.Context, res Result) {
	payload := map[string]any{
		events.PayloadCallID: res.CallID,
		events.PayloadTool:   res.ToolName,
		events.PayloadStatus: string(res.Status),
	}
	if res.ErrorDetail != "" {
		payload[events.PayloadError] = res.ErrorDetail
	}
	if res.Partial {
		payload[events.PayloadPartial] = true
	}
	if turn, ok := TurnFromContext(ctx); ok {
		payload[events.PayloadTurn] = turn
	}
	d.emitter.Emit(events.KindToolResult, payload)
}

func compactJSON(raw json.RawMessage) string {
	var tmp any
	if err := json.Unmarshal(raw, &tmp); err == nil {
		if b, err := json.Marshal(tmp); err == nil {
			return string(b)
		}
	}
	return string(raw)
}

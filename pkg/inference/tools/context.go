package tools

import "context"

type turnKey struct{}
type currentCallKey struct{}

// WithTurn annotates ctx with the agent turn that requested the calls. The
// dispatcher copies it into tool events.
func WithTurn(ctx context.Context, turn int) context.Context {
	return context.WithValue(ctx, turnKey{}, turn)
}

func TurnFromContext(ctx context.Context) (int, bool) {
	turn, ok := ctx.Value(turnKey{}).(int)
	return turn, ok
}

// WithCurrentToolCall annotates ctx with the call a handler is serving.
func WithCurrentToolCall(ctx context.Context, call ToolCall) context.Context {
	return context.WithValue(ctx, currentCallKey{}, call)
}

// CurrentToolCallFromContext returns the call a handler is serving, if any.
func CurrentToolCallFromContext(ctx context.Context) (ToolCall, bool) {
	call, ok := ctx.Value(currentCallKey{}).(ToolCall)
	return call, ok
}

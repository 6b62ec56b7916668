package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/pkg/errors"
)

// Mutability is the capability class of a tool.
type Mutability string

const (
	// ReadOnly tools only inspect state and are safe to retry.
	ReadOnly Mutability = "read-only"
	// SideEffecting tools change the outside world (files, drafts).
	SideEffecting Mutability = "side-effecting"
)

// HandlerFunc receives arguments that already passed schema validation.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a named, schema-described capability an agent may invoke.
type Tool struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Parameters  *schema.Descriptor `json:"-" yaml:"-"`
	Mutability  Mutability         `json:"mutability" yaml:"mutability"`

	handler HandlerFunc
}

// New builds a tool whose parameter schema is reflected from In. Validated
// arguments are decoded into In before fn is called.
func New[In any](name, description string, mutability Mutability, fn func(ctx context.Context, in In) (any, error)) (*Tool, error) {
	params, err := schema.For[In](name, description)
	if err != nil {
		return nil, errors.Wrapf(err, "generate schema for tool %s", name)
	}
	return NewRaw(name, description, mutability, params, func(ctx context.Context, args json.RawMessage) (any, error) {
		var in In
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, errors.Wrap(err, "decode arguments")
		}
		return fn(ctx, in)
	})
}

// NewRaw builds a tool from an explicit schema and a raw handler.
func NewRaw(name, description string, mutability Mutability, params *schema.Descriptor, h HandlerFunc) (*Tool, error) {
	if name == "" {
		return nil, errors.New("tool name cannot be empty")
	}
	if h == nil {
		return nil, errors.Errorf("tool %s has no handler", name)
	}
	if params == nil {
		return nil, errors.Errorf("tool %s has no parameter schema", name)
	}
	switch mutability {
	case ReadOnly, SideEffecting:
	default:
		return nil, errors.Errorf("tool %s has unknown mutability %q", name, mutability)
	}
	return &Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		Mutability:  mutability,
		handler:     h,
	}, nil
}

// Must panics if a tool constructor failed. Intended for static tool sets.
func Must(t *Tool, err error) *Tool {
	if err != nil {
		panic(err)
	}
	return t
}

// Call runs the handler without validation or timeout; use a Dispatcher.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return t.handler(ctx, args)
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"call_id" yaml:"call_id"`
	Name      string          `json:"tool_name" yaml:"tool_name"`
	Arguments json.RawMessage `json:"arguments" yaml:"arguments"`
}

// Status of a tool invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// FailureKind classifies a failed result.
type FailureKind string

const (
	FailureHandler FailureKind = "handler_error"
	FailureTimeout FailureKind = "timeout"
	FailurePanic   FailureKind = "panic"
)

// Result is the outcome of one tool invocation, fed back to the agent.
type Result struct {
	CallID      string        `json:"call_id" yaml:"call_id"`
	ToolName    string        `json:"tool_name" yaml:"tool_name"`
	Status      Status        `json:"status" yaml:"status"`
	Payload     any           `json:"payload,omitempty" yaml:"payload,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	FailureKind FailureKind   `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	Partial     bool          `json:"partial,omitempty" yaml:"partial,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

func (r Result) Failed() bool {
	return r.Status == StatusFailure
}

// Content renders the result as the text handed back to the model.
func (r Result) Content() string {
	body := map[string]any{"status": r.Status}
	if r.Payload != nil {
		body["payload"] = r.Payload
	}
	if r.ErrorDetail != "" {
		body["error"] = r.ErrorDetail
	}
	if r.Partial {
		body["partial"] = true
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf(`{"status":%q,"payload":%q}`, r.Status, fmt.Sprintf("%v", r.Payload))
	}
	return string(b)
}

package engine

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/go-go-golems/handoff/pkg/turns"
)

// Engine is the completion service boundary. Implementations return
// *TransientError for failures worth retrying and *RequestError for
// requests the service rejected.
type Engine interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ToolSpec describes a tool to the completion service.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  *schema.Descriptor
}

// ToolSpecs describes every tool of a registry.
func ToolSpecs(r *tools.Registry) []ToolSpec {
	if r == nil {
		return nil
	}
	ret := make([]ToolSpec, 0, r.Len())
	for _, t := range r.List() {
		ret = append(ret, ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return ret
}

type Request struct {
	Agent        turns.Role
	Instructions string
	// Messages starts with the input context followed by the turn history.
	Messages []turns.Message
	Tools    []ToolSpec
	// TerminalSchema is the shape of the agent's final answer.
	TerminalSchema *schema.Descriptor
}

type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Response holds one of: tool calls, a structured payload or free text.
type Response struct {
	Text         string
	ToolCalls    []tools.ToolCall
	Structured   json.RawMessage
	FinishReason string
	Usage        Usage
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, req *Request) (*Response, error)

func (f EngineFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

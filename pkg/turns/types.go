package turns

import (
	"encoding/json"
	"time"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
)

// Role of the agent that produced a turn.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleExecutor Role = "executor"
)

// OutputKind tells which of the Output fields is set.
type OutputKind string

const (
	OutputText      OutputKind = "text"
	OutputToolCalls OutputKind = "tool_calls"
	OutputTerminal  OutputKind = "terminal"
)

// Output is what the completion service returned for one turn.
type Output struct {
	Kind      OutputKind       `json:"kind" yaml:"kind"`
	Text      string           `json:"text,omitempty" yaml:"text,omitempty"`
	ToolCalls []tools.ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	Terminal  json.RawMessage  `json:"terminal,omitempty" yaml:"-"`
}

// AgentTurn is one request/response cycle of an agent. Index starts at 1.
type AgentTurn struct {
	Index        int            `json:"index" yaml:"index"`
	Role         Role           `json:"role" yaml:"role"`
	InputContext string         `json:"input_context,omitempty" yaml:"input_context,omitempty"`
	Output       Output         `json:"output" yaml:"output"`
	Results      []tools.Result `json:"results,omitempty" yaml:"results,omitempty"`
	Attempts     int            `json:"attempts" yaml:"attempts"`
	StartedAt    time.Time      `json:"started_at" yaml:"started_at"`
	Duration     time.Duration  `json:"duration" yaml:"duration"`
}

// MessageRole is the chat role of a history message.
type MessageRole string

const (
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
	MessageTool      MessageRole = "tool"
)

// Message is an entry of the conversation sent back to the completion
// service on the next turn.
type Message struct {
	Role       MessageRole      `json:"role" yaml:"role"`
	Content    string           `json:"content,omitempty" yaml:"content,omitempty"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	ToolName   string           `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
}

package turns

import "github.com/go-go-golems/handoff/pkg/inference/tools"

// History accumulates the turns of one agent run. It belongs to a single
// runner and is not safe for concurrent use.
type History struct {
	role     Role
	input    string
	turns    []AgentTurn
	messages []Message
}

func NewHistory(role Role, input string) *History {
	return &History{
		role:     role,
		input:    input,
		messages: []Message{{Role: MessageUser, Content: input}},
	}
}

func (h *History) Role() Role {
	return h.role
}

func (h *History) Input() string {
	return h.input
}

// Len is the number of completed turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Append records a turn and the conversation messages it produces.
func (h *History) Append(turn AgentTurn) {
	turn.Index = len(h.turns) + 1
	turn.Role = h.role
	h.turns = append(h.turns, turn)

	switch turn.Output.Kind {
	case OutputToolCalls:
		h.messages = append(h.messages, Message{
			Role:      MessageAssistant,
			Content:   turn.Output.Text,
			ToolCalls: turn.Output.ToolCalls,
		})
		for _, r := range turn.Results {
			h.messages = append(h.messages, Message{
				Role:       MessageTool,
				Content:    r.Content(),
				ToolCallID: r.CallID,
				ToolName:   r.ToolName,
			})
		}
	case OutputTerminal:
		h.messages = append(h.messages, Message{Role: MessageAssistant, Content: string(turn.Output.Terminal)})
	default:
		h.messages = append(h.messages, Message{Role: MessageAssistant, Content: turn.Output.Text})
	}
}

// Messages returns the conversation so far, starting with the input.
func (h *History) Messages() []Message {
	return append([]Message(nil), h.messages...)
}

func (h *History) Turns() []AgentTurn {
	return append([]AgentTurn(nil), h.turns...)
}

// Results returns every tool result recorded so far, in turn and call order.
func (h *History) Results() []tools.Result {
	var ret []tools.Result
	for _, t := range h.turns {
		ret = append(ret, t.Results...)
	}
	return ret
}

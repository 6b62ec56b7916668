package events

import (
	"fmt"
	"strings"
	"sync"
)

// Payload keys used by tool events.
const (
	PayloadCallID    = "call_id"
	PayloadTool      = "tool"
	PayloadArguments = "arguments"
	PayloadStatus    = "status"
	PayloadError     = "error"
	PayloadPartial   = "partial"
	PayloadTurn      = "turn"
)

// ToolEventEntry aggregates the activity of one tool call, keyed by call id.
type ToolEventEntry struct {
	Stage     Stage
	ID        string
	Name      string
	Arguments string
	Invoked   bool
	Status    string
	Error     string
	Partial   bool
}

// ToolEventAggregator collects tool events into compact entries per call id.
// It is a Handler and is safe to use from the delivery goroutine while
// another goroutine reads Entries.
type ToolEventAggregator struct {
	mu      sync.Mutex
	index   map[string]int
	entries []ToolEventEntry
}

func NewToolEventAggregator() *ToolEventAggregator {
	return &ToolEventAggregator{
		index:   make(map[string]int),
		entries: make([]ToolEventEntry, 0, 4),
	}
}

// Entries returns a snapshot of current entries in insertion order.
func (a *ToolEventAggregator) Entries() []ToolEventEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ToolEventEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *ToolEventAggregator) OnEvent(e Event) {
	if e.Kind != KindToolInvoked && e.Kind != KindToolResult {
		return
	}
	id, _ := e.Payload[PayloadCallID].(string)
	if id == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.ensure(string(e.Stage) + "/" + id)
	entry := &a.entries[idx]
	entry.Stage = e.Stage
	entry.ID = id
	if name, ok := e.Payload[PayloadTool].(string); ok && name != "" {
		entry.Name = name
	}

	switch e.Kind {
	case KindToolInvoked:
		entry.Invoked = true
		if args, ok := e.Payload[PayloadArguments].(string); ok {
			entry.Arguments = args
		}
	case KindToolResult:
		entry.Status, _ = e.Payload[PayloadStatus].(string)
		entry.Error, _ = e.Payload[PayloadError].(string)
		entry.Partial, _ = e.Payload[PayloadPartial].(bool)
	}
}

// Lines returns a compact, plain-text representation for each entry.
func (a *ToolEventAggregator) Lines() []string {
	entries := a.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.ID
		}
		parts := []string{fmt.Sprintf("[%s] %s", e.Stage, name)}
		if e.Arguments != "" {
			parts = append(parts, e.Arguments)
		}
		if e.Status != "" {
			parts = append(parts, "-> "+e.Status)
		}
		if e.Partial {
			parts = append(parts, "(partial)")
		}
		if e.Error != "" {
			parts = append(parts, e.Error)
		}
		lines = append(lines, strings.Join(parts, "  "))
	}
	return lines
}

func (a *ToolEventAggregator) ensure(key string) int {
	if idx, ok := a.index[key]; ok {
		return idx
	}
	idx := len(a.entries)
	a.index[key] = idx
	a.entries = append(a.entries, ToolEventEntry{})
	return idx
}

var _ Handler = (*ToolEventAggregator)(nil)

package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	KindRunStarted     Kind = "run_started"
	KindStageStarted   Kind = "stage_started"
	KindStateChanged   Kind = "state_changed"
	KindTurnStarted    Kind = "turn_started"
	KindToolInvoked    Kind = "tool_invoked"
	KindToolResult     Kind = "tool_result"
	KindStageCompleted Kind = "stage_completed"
	KindStageFailed    Kind = "stage_failed"
	KindRunCompleted   Kind = "run_completed"
	KindRunFailed      Kind = "run_failed"
)

// Stage names the part of a run that produced an event.
type Stage string

const (
	StageOrchestrator Stage = "orchestrator"
	StagePlanner      Stage = "planner"
	StageExecutor     Stage = "executor"
)

// Event is a single entry of the event stream. Seq is assigned by the Stream
// and is strictly increasing per stream.
type Event struct {
	RunID     string         `json:"run_id" yaml:"run_id"`
	Seq       uint64         `json:"seq" yaml:"seq"`
	Stage     Stage          `json:"stage" yaml:"stage"`
	Kind      Kind           `json:"kind" yaml:"kind"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func (e Event) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("run_id", e.RunID).
		Uint64("seq", e.Seq).
		Str("stage", string(e.Stage)).
		Str("kind", string(e.Kind)).
		Time("timestamp", e.Timestamp)
	if len(e.Payload) > 0 {
		ev.Interface("payload", e.Payload)
	}
}

// Publisher accepts events from producers. Implementations must not block.
type Publisher interface {
	Publish(e Event)
}

// Handler consumes events delivered by a Stream.
type Handler interface {
	OnEvent(e Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(e Event)

func (f HandlerFunc) OnEvent(e Event) {
	f(e)
}

package events

import "time"

// Emitter binds a run id and a stage to a Publisher so producers only supply
// the kind and payload. The zero Emitter discards everything.
type Emitter struct {
	publisher Publisher
	runID     string
	stage     Stage
}

func NewEmitter(p Publisher, runID string, stage Stage) Emitter {
	return Emitter{publisher: p, runID: runID, stage: stage}
}

// NopEmitter returns an emitter without a publisher.
func NopEmitter() Emitter {
	return Emitter{}
}

func (e Emitter) WithStage(stage Stage) Emitter {
	e.stage = stage
	return e
}

func (e Emitter) RunID() string {
	return e.runID
}

func (e Emitter) Stage() Stage {
	return e.stage
}

func (e Emitter) Emit(kind Kind, payload map[string]any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(Event{
		RunID:     e.runID,
		Stage:     e.stage,
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

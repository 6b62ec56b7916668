package directive

import (
	"encoding/json"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/huandu/go-clone"
)

// Terminal is the final structured output of an agent: *Directive for the
// planner, *ExecutionReport for the executor.
type Terminal interface {
	isTerminal()
}

// Directive is the planner's validated output. It is immutable: Context
// returns a deep copy.
type Directive struct {
	Summary string
	Route   Route
	context map[string]any
}

func NewDirective(summary string, route Route, ctx map[string]any) *Directive {
	d := &Directive{Summary: summary, Route: route}
	if ctx != nil {
		d.context = clone.Clone(ctx).(map[string]any)
	}
	return d
}

func (d *Directive) isTerminal() {}

func (d *Directive) ExecRequired() bool {
	return d.Route != nil && d.Route.ExecRequired()
}

func (d *Directive) PlanSteps() []string {
	if d.Route == nil {
		return nil
	}
	return d.Route.Steps()
}

func (d *Directive) Context() map[string]any {
	if d.context == nil {
		return map[string]any{}
	}
	return clone.Clone(d.context).(map[string]any)
}

func (d *Directive) wire() directiveWire {
	steps := d.PlanSteps()
	if steps == nil {
		steps = []string{}
	}
	return directiveWire{
		Summary:      d.Summary,
		PlanSteps:    steps,
		ExecRequired: d.ExecRequired(),
		Context:      d.Context(),
	}
}

func (d *Directive) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wire())
}

func (d *Directive) UnmarshalJSON(b []byte) error {
	decoded, err := DecodeDirective(string(b))
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}

func (d *Directive) MarshalYAML() (interface{}, error) {
	return d.wire(), nil
}

// directiveWire is the shape the planner must emit.
type directiveWire struct {
	Summary      string         `json:"summary" yaml:"summary" jsonschema:"description=Short summary of what was found"`
	PlanSteps    []string       `json:"plan_steps" yaml:"plan_steps" jsonschema:"description=Ordered instructions for the executor. Must not be empty when exec_required is true"`
	ExecRequired bool           `json:"exec_required" yaml:"exec_required" jsonschema:"description=True if side-effecting actions must be performed"`
	Context      map[string]any `json:"context" yaml:"context" jsonschema:"description=Facts the executor needs, such as file names or counts"`
}

type FinalStatus string

const (
	FinalCompleted FinalStatus = "completed"
	FinalPartial   FinalStatus = "partial"
	FinalFailed    FinalStatus = "failed"
)

// ExecutionReport is the executor's terminal output. ActionsTaken is filled
// from the tool results the runner actually recorded.
type ExecutionReport struct {
	ActionsTaken []tools.Result `json:"actions_taken" yaml:"actions_taken"`
	FinalStatus  FinalStatus    `json:"final_status" yaml:"final_status"`
	Message      string         `json:"message" yaml:"message"`
}

func (r *ExecutionReport) isTerminal() {}

type reportWire struct {
	ActionsTaken []tools.Result `json:"actions_taken,omitempty" jsonschema:"-"`
	FinalStatus  FinalStatus    `json:"final_status" jsonschema:"enum=completed,enum=partial,enum=failed,description=Outcome of the plan"`
	Message      string         `json:"message" jsonschema:"description=What was done, or why it could not be done"`
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// RunResult is the outcome of one orchestrated run.
type RunResult struct {
	RunID           string            `json:"run_id" yaml:"run_id"`
	Directive       *Directive        `json:"directive" yaml:"directive"`
	ExecutionReport *ExecutionReport  `json:"execution_report,omitempty" yaml:"execution_report,omitempty"`
	RunStatus       RunStatus         `json:"run_status" yaml:"run_status"`
	PlannerTurns    []turns.AgentTurn `json:"planner_turns,omitempty" yaml:"planner_turns,omitempty"`
	ExecutorTurns   []turns.AgentTurn `json:"executor_turns,omitempty" yaml:"executor_turns,omitempty"`
	DroppedEvents   uint64            `json:"dropped_events" yaml:"dropped_events"`
}

package directive

import "github.com/pkg/errors"

// Route is the routing decision of a Directive. It is either NoActionNeeded
// or ActionRequired.
type Route interface {
	ExecRequired() bool
	Steps() []string
	isRoute()
}

// NoActionNeeded ends the run after planning. Steps may still describe what
// the planner looked at.
type NoActionNeeded struct {
	steps []string
}

func NewNoActionNeeded(steps ...string) NoActionNeeded {
	return NoActionNeeded{steps: append([]string(nil), steps...)}
}

func (NoActionNeeded) ExecRequired() bool { return false }

func (n NoActionNeeded) Steps() []string {
	return append([]string(nil), n.steps...)
}

func (NoActionNeeded) isRoute() {}

// ActionRequired hands the plan to the executor. The plan is never empty.
type ActionRequired struct {
	plan []string
}

var ErrEmptyPlan = errors.New("action required without plan steps")

func NewActionRequired(plan ...string) (ActionRequired, error) {
	if len(plan) == 0 {
		return ActionRequired{}, ErrEmptyPlan
	}
	return ActionRequired{plan: append([]string(nil), plan...)}, nil
}

func (ActionRequired) ExecRequired() bool { return true }

func (a ActionRequired) Steps() []string {
	return append([]string(nil), a.plan...)
}

func (ActionRequired) isRoute() {}

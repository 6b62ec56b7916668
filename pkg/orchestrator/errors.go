package orchestrator

import (
	"fmt"

	"github.com/go-go-golems/handoff/pkg/directive"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/pkg/errors"
)

var ErrPartialExecution = errors.New("executor finished with a partial result")

// RunError is a fatal run failure. Result holds whatever was produced
// before the failure, such as the directive when the executor failed.
type RunError struct {
	RunID  string
	Stage  turns.Role
	Turn   int
	Err    error
	Result *directive.RunResult
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed in %s at turn %d: %v", e.RunID, e.Stage, e.Turn, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

package runner

import (
	"fmt"

	"github.com/go-go-golems/handoff/pkg/turns"
)

// TurnLimitExceededError means the agent did not reach a terminal answer
// within the turn budget.
type TurnLimitExceededError struct {
	Limit int
}

func (e *TurnLimitExceededError) Error() string {
	return fmt.Sprintf("turn limit of %d exceeded", e.Limit)
}

// CancelledError means the run context was cancelled or hit its deadline.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// StageError locates a failure: which agent and which turn.
type StageError struct {
	Stage turns.Role
	Turn  int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed at turn %d: %v", e.Stage, e.Turn, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

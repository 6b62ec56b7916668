package tools

import (
	"fmt"
	"strings"
)

// UnknownToolError is returned when a call names a tool that is not
// registered. It indicates a configuration or contract breach and is never
// retried.
type UnknownToolError struct {
	Name      string
	Available []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// CapabilityViolationError is returned when a tool is placed into, or
// dispatched from, a registry whose ceiling does not allow its mutability.
type CapabilityViolationError struct {
	Tool       string
	Mutability Mutability
	Ceiling    Mutability
}

func (e *CapabilityViolationError) Error() string {
	return fmt.Sprintf("capability violation: tool %q is %s but the registry only allows %s tools", e.Tool, e.Mutability, e.Ceiling)
}

// PartialEffectError lets side-effecting handlers report that some of their
// effects happened before the failure.
type PartialEffectError struct {
	Effect string
	Err    error
}

func (e *PartialEffectError) Error() string {
	return fmt.Sprintf("partial effect (%s): %v", e.Effect, e.Err)
}

func (e *PartialEffectError) Unwrap() error {
	return e.Err
}

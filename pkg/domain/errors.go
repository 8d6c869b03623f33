package domain

import (
	"errors"
	"fmt"
)

// ErrHalted is returned when an operation reaches a halted machine.
var ErrHalted = errors.New("machine halted, reset required")

// DefinitionError reports invalid declarative input: multiple initial
// states, an empty top-level machine, or a specification that cannot be
// instantiated. It is fatal to construction and Reset; every other fault
// is absorbed into the action log instead.
type DefinitionError struct {
	Reason string
}

func (e *DefinitionError) Error() string {
	return "definition error: " + e.Reason
}

// Definitionf builds a DefinitionError from a format string.
func Definitionf(format string, args ...any) *DefinitionError {
	return &DefinitionError{Reason: fmt.Sprintf(format, args...)}
}

// ActionError reports a vetted snippet that faulted during evaluation.
// Under the default policy it is logged and absorbed; under the
// halt-on-action-error policy it halts the engine instance.
type ActionError struct {
	Label   string // callback label, e.g. "entry_Idle"
	State   string // state context at the time of the fault
	Snippet string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q faulted in state %q: %v (code: %q)", e.Label, e.State, e.Err, e.Snippet)
}

func (e *ActionError) Unwrap() error { return e.Err }

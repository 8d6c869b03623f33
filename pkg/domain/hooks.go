package domain

// FaultKind categorizes a snippet fault reported through lifecycle hooks.
type FaultKind string

const (
	// FaultBlocked marks a snippet rejected by the static safety checker.
	FaultBlocked FaultKind = "blocked"
	// FaultRuntime marks a vetted snippet that faulted while evaluating.
	FaultRuntime FaultKind = "runtime"
)

// StateEvent describes entry into or exit from a state.
type StateEvent struct {
	State string // state name at its own level
	Path  string // hierarchical name, e.g. "Parent (Child)"
}

// TransitionEvent describes a fired transition.
type TransitionEvent struct {
	Event  string
	Source string
	Target string
}

// FaultEvent describes a blocked or faulted snippet.
type FaultEvent struct {
	Kind   FaultKind
	Label  string
	State  string
	Reason string
}

// LifecycleHooks are optional observability callbacks. They run
// synchronously on the stepping goroutine and must not call back into the
// engine. Nil members are skipped.
type LifecycleHooks struct {
	OnStateEnter func(StateEvent)
	OnStateExit  func(StateEvent)
	OnTransition func(TransitionEvent)
	OnFault      func(FaultEvent)
}

package runtime

import (
	"log/slog"
	"sort"

	"github.com/dverbeek/ramify/internal/logging"
	"github.com/dverbeek/ramify/pkg/domain"
)

// Instance is the mutable runtime state for one machine level. It owns its
// Store and Trace exclusively, and owns at most one child Instance while
// the current state is an active superstate. The child never references
// its parent; the parent drains the child's log and reads its final-state
// flag through this owning handle.
//
// An Instance is single-threaded by design: the caller invokes Step and
// Reset sequentially. Embedders that need concurrent access must
// serialize it themselves (the HTTP adapter does).
type Instance struct {
	spec   *MachineSpec
	vars   *Store
	trace  *Trace
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	current     string
	halted      bool
	haltOnError bool

	child      *Instance
	childSuper string
	depth      int
}

// InstanceOption configures an Instance at construction time.
type InstanceOption func(*Instance)

// WithLogger sets the structured logger mirrored by the action trace.
func WithLogger(l *slog.Logger) InstanceOption {
	return func(in *Instance) { in.logger = l }
}

// WithHaltOnActionError selects the halting policy: an action fault halts
// the instance instead of being absorbed into the log.
func WithHaltOnActionError(halt bool) InstanceOption {
	return func(in *Instance) { in.haltOnError = halt }
}

// WithHooks registers lifecycle observability hooks.
func WithHooks(h domain.LifecycleHooks) InstanceOption {
	return func(in *Instance) { in.hooks = h }
}

// NewInstance creates a runtime instance from a built spec and enters the
// initial state, running its entry hook (which may spawn a sub-machine).
//
// The instance is returned even on error so the caller can drain the log
// that led up to the failure; a non-nil error means the instance halted
// during initial entry under the halting policy.
func NewInstance(spec *MachineSpec, opts ...InstanceOption) (*Instance, error) {
	in := &Instance{spec: spec, vars: NewStore()}
	for _, opt := range opts {
		opt(in)
	}
	if in.logger == nil {
		in.logger = logging.NewNop()
	}
	in.trace = NewTrace(0, in.logger)
	return in, in.init()
}

// spawn creates the child instance for an entered superstate, inheriting
// the parent's policy, hooks and logger at one deeper nesting level.
func (in *Instance) spawn(spec *MachineSpec) (*Instance, error) {
	child := &Instance{
		spec:        spec,
		vars:        NewStore(),
		logger:      in.logger,
		hooks:       in.hooks,
		haltOnError: in.haltOnError,
		depth:       in.depth + 1,
	}
	child.trace = NewTrace(child.depth, child.logger)
	return child, child.init()
}

func (in *Instance) init() error {
	for _, w := range in.spec.Warnings() {
		in.trace.Logf("Warning: %s", w)
	}
	if in.spec.Empty() {
		in.trace.Logf("Sub-machine initialized but has no states (inactive).")
		return nil
	}
	in.current = in.spec.Initial()
	if err := in.enterState(in.current); err != nil {
		return err
	}
	in.trace.Logf("Machine initialized. Current state: %s", in.current)
	return nil
}

// Step advances the machine one tick: the current state's during-action
// runs, an active child steps internally, and then the event (if any) is
// dispatched against the transition table. It returns the hierarchical
// state name and the log entries accumulated since the last drain.
func (in *Instance) Step(event string) (string, []string) {
	if in.halted {
		in.trace.Logf("Simulation HALTED. Event '%s' ignored. Reset required.", eventLabel(event))
		return in.StateName(), in.trace.Drain()
	}
	if in.spec.Empty() {
		in.trace.Logf("Cannot step: sub-machine has no states.")
		return in.StateName(), in.trace.Drain()
	}

	in.trace.Logf("--- Step. State: %s. Event: %s ---", in.StateName(), eventLabel(event))

	if st := in.spec.State(in.current); st != nil && st.During != nil {
		in.trace.Logf("During action for '%s': %s", in.current, st.During.Code())
		if err := in.runAction(st.During, in.current); err != nil {
			return in.StateName(), in.trace.Drain()
		}
	}

	if in.child != nil {
		in.trace.Logf("Internal step for sub-machine in '%s'.", in.childSuper)
		_, subLog := in.child.Step("")
		in.trace.Append(subLog)
		if in.child.halted {
			in.halted = true
			in.trace.Logf("Parent HALTED due to sub-machine error in '%s'.", in.childSuper)
			return in.StateName(), in.trace.Drain()
		}
		if cs := in.child.spec.State(in.child.current); cs != nil && cs.Final {
			in.trace.Logf("Sub-machine in '%s' reached final state: '%s'.", in.childSuper, in.child.current)
			flag := in.childSuper + "_sub_completed"
			in.vars.Set(flag, true)
			in.trace.Logf("Variable '%s' set to true.", flag)
		}
	}

	if event != "" {
		in.dispatch(event)
	} else if in.child == nil {
		in.trace.Logf("No event. During actions done. State remains '%s'.", in.current)
	}

	return in.StateName(), in.trace.Drain()
}

// dispatch resolves one event against this level's transition table. When
// the level has nothing for the event but a child is active, the event is
// offered to the child instead; events aimed at this level remain
// dispatchable while a superstate's child runs.
func (in *Instance) dispatch(event string) {
	candidates := in.spec.candidates(in.current, event)
	if len(candidates) == 0 {
		if in.child != nil {
			in.trace.Logf("Event '%s' not handled at this level. Forwarding to sub-machine in '%s'.", event, in.childSuper)
			in.child.dispatch(event)
			in.trace.Append(in.child.trace.Drain())
			if in.child.halted {
				in.halted = true
				in.trace.Logf("Parent HALTED due to sub-machine error in '%s'.", in.childSuper)
			}
			return
		}
		in.trace.Logf("Event '%s': no eligible transition from state '%s'.", event, in.current)
		return
	}

	for _, t := range candidates {
		if t.Cond != nil {
			ok, err := t.Cond.EvalCondition(in.vars, in.trace, in.current)
			if err != nil {
				in.fault(domain.FaultRuntime, t.Cond, err.Error())
			}
			if !ok {
				continue
			}
		}
		in.fire(t, event)
		return
	}
	in.trace.Logf("Event '%s': no eligible transition from state '%s'.", event, in.current)
}

// fire runs one transition end to end: action, old state's exit (which
// tears down an active child), state change, new state's entry (which may
// spawn a child).
func (in *Instance) fire(t *TransitionSpec, event string) {
	in.trace.Logf("Before transition on '%s' from '%s' to '%s'", event, t.Source, t.Target)
	if t.Action != nil {
		if err := in.runAction(t.Action, in.current); err != nil {
			return
		}
	}
	if err := in.exitState(in.current); err != nil {
		return
	}
	in.current = t.Target
	if in.hooks.OnTransition != nil {
		in.hooks.OnTransition(domain.TransitionEvent{Event: event, Source: t.Source, Target: t.Target})
	}
	if err := in.enterState(t.Target); err != nil {
		return
	}
	in.trace.Logf("After transition on '%s' from '%s' to '%s'", event, t.Source, t.Target)
}

func (in *Instance) enterState(name string) error {
	st := in.spec.State(name)
	if st == nil {
		return domain.Definitionf("entered unknown state '%s'", name)
	}
	in.trace.Logf("Entering state: %s", name)
	if in.hooks.OnStateEnter != nil {
		in.hooks.OnStateEnter(domain.StateEvent{State: name, Path: in.StateName()})
	}
	if st.Entry != nil {
		if err := in.runAction(st.Entry, name); err != nil {
			return err
		}
	}
	if !st.Superstate {
		return nil
	}

	if st.Sub == nil || len(st.Sub.States) == 0 {
		in.trace.Logf("Superstate '%s' has no defined sub-machine states.", name)
		return nil
	}

	in.trace.Logf("Superstate '%s' entered. Initializing its sub-machine.", name)
	subSpec, err := Build(st.Sub, false)
	if err != nil {
		return in.childFailure(name, err)
	}
	child, err := in.spawn(subSpec)
	if child != nil {
		in.trace.Append(child.trace.Drain())
	}
	if err != nil {
		return in.childFailure(name, err)
	}
	in.child = child
	in.childSuper = name
	return nil
}

// childFailure reports a nested build or init failure at the parent
// level, halting the parent under the halting policy.
func (in *Instance) childFailure(superstate string, err error) error {
	in.trace.Logf("ERROR initializing sub-machine for '%s': %v", superstate, err)
	in.logger.Error("sub-machine initialization failed", "superstate", superstate, "error", err)
	if in.haltOnError {
		in.halted = true
		in.trace.Logf("[SIMULATION HALTED] sub-machine init failed for '%s'.", superstate)
		return domain.Definitionf("sub-machine init failed for '%s': %v", superstate, err)
	}
	return nil
}

func (in *Instance) exitState(name string) error {
	st := in.spec.State(name)
	in.trace.Logf("Exiting state: %s", name)
	if in.hooks.OnStateExit != nil {
		in.hooks.OnStateExit(domain.StateEvent{State: name, Path: in.StateName()})
	}
	if st != nil && st.Exit != nil {
		if err := in.runAction(st.Exit, name); err != nil {
			return err
		}
	}
	if in.child != nil && in.childSuper == name {
		in.trace.Logf("Superstate '%s' exited. Terminating its sub-machine.", name)
		in.trace.Append(in.child.trace.Drain())
		in.child = nil
		in.childSuper = ""
	}
	return nil
}

// runAction invokes an action callback and applies the fault policy: a
// fault is absorbed after logging, or halts the instance when the
// halt-on-action-error policy is on.
func (in *Instance) runAction(cb *Callback, stateCtx string) error {
	if cb.Blocked() {
		in.fault(domain.FaultBlocked, cb, cb.BlockReason())
	}
	err := cb.RunAction(in.vars, in.trace, stateCtx)
	if err == nil {
		return nil
	}
	in.fault(domain.FaultRuntime, cb, err.Error())
	if in.haltOnError {
		in.halted = true
		in.trace.Logf("[SIMULATION HALTED] %v", err)
		return err
	}
	return nil
}

func (in *Instance) fault(kind domain.FaultKind, cb *Callback, reason string) {
	if in.hooks.OnFault != nil {
		in.hooks.OnFault(domain.FaultEvent{Kind: kind, Label: cb.Label(), State: in.current, Reason: reason})
	}
}

// Reset discards this level's runtime state wholesale: variables cleared,
// halt flag lifted, any active child reset and torn down, and the initial
// state re-entered from the already-validated spec. A failure here is an
// internal invariant violation and is fatal.
func (in *Instance) Reset() error {
	in.trace.Logf("--- Machine resetting ---")
	in.vars.Clear()
	in.halted = false
	if in.child != nil {
		in.trace.Logf("Resetting active sub-machine before teardown.")
		_ = in.child.Reset()
		in.trace.Append(in.child.trace.Drain())
		in.child = nil
		in.childSuper = ""
	}
	if in.spec.Empty() {
		return nil
	}
	in.current = in.spec.Initial()
	if err := in.enterState(in.current); err != nil {
		return domain.Definitionf("reset failed: %v", err)
	}
	in.trace.Logf("Machine reset. Current state: %s", in.current)
	return nil
}

// StateName returns the hierarchical state name, parenthesizing the
// active child: "Parent (Child)".
func (in *Instance) StateName() string {
	name := in.current
	if in.child != nil {
		name += " (" + in.child.StateName() + ")"
	}
	return name
}

// LeafStateName returns the deepest active state name.
func (in *Instance) LeafStateName() string {
	if in.child != nil {
		return in.child.LeafStateName()
	}
	return in.current
}

// PossibleEvents returns the sorted union of events dispatchable from the
// current state at this level and, when a child is active, the child's
// own dispatchable events.
func (in *Instance) PossibleEvents() []string {
	set := make(map[string]struct{})
	for _, e := range in.spec.EventsFrom(in.current) {
		set[e] = struct{}{}
	}
	if in.child != nil {
		for _, e := range in.child.PossibleEvents() {
			set[e] = struct{}{}
		}
	}
	events := make([]string, 0, len(set))
	for e := range set {
		events = append(events, e)
	}
	sort.Strings(events)
	return events
}

// Variables returns a stringified snapshot of this level's store, with an
// active child's variables namespaced under its superstate name.
func (in *Instance) Variables() map[string]string {
	out := in.vars.Stringified()
	if in.child != nil {
		for name, value := range in.child.Variables() {
			out[in.childSuper+"."+name] = value
		}
	}
	return out
}

// Halted reports whether the instance stopped accepting steps.
func (in *Instance) Halted() bool { return in.halted }

// DrainLog returns the buffered log entries and clears the buffer.
func (in *Instance) DrainLog() []string { return in.trace.Drain() }

func eventLabel(event string) string {
	if event == "" {
		return "Internal"
	}
	return event
}

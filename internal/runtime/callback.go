package runtime

import (
	"github.com/dverbeek/ramify/internal/sandbox"
	"github.com/dverbeek/ramify/pkg/domain"
)

// CallbackKind distinguishes side-effecting actions from boolean guards.
type CallbackKind int

const (
	KindAction CallbackKind = iota
	KindCondition
)

func (k CallbackKind) String() string {
	if k == KindCondition {
		return "condition"
	}
	return "action"
}

// Callback wraps one snippet behind the safety checker. A snippet that
// fails vetting yields a permanently blocked stub: the stub logs that it
// was blocked every time it is invoked and never evaluates the code, no
// matter how often it is called.
type Callback struct {
	code    string
	kind    CallbackKind
	label   string
	blocked bool
	reason  string
}

// NewCallback vets code and returns an invokable callback. The label
// names the owning hook ("entry_Idle", "cond_t2_go") for log context.
// known carries the variable names visible at vetting time.
func NewCallback(code string, kind CallbackKind, label string, known map[string]struct{}) *Callback {
	cb := &Callback{code: code, kind: kind, label: label}
	var safe bool
	if kind == KindCondition {
		safe, cb.reason = sandbox.CheckExpr(code, known)
	} else {
		safe, cb.reason = sandbox.Check(code, known)
	}
	cb.blocked = !safe
	return cb
}

func (c *Callback) Code() string    { return c.code }
func (c *Callback) Label() string   { return c.label }
func (c *Callback) Blocked() bool   { return c.blocked }
func (c *Callback) BlockReason() string { return c.reason }

// RunAction executes the snippet against the store. Blocked stubs log
// and do nothing. Runtime faults are logged and returned as
// *domain.ActionError; the caller decides whether the fault halts.
func (c *Callback) RunAction(vars *Store, trace *Trace, stateCtx string) error {
	if c.blocked {
		trace.Logf("[Action Blocked by Safety Check] Unsafe code ignored: '%s'.", c.code)
		return nil
	}
	trace.Logf("[Action Runtime] Executing: '%s' in state '%s' for '%s' with vars: %s",
		c.code, stateCtx, c.label, vars)
	result, err := sandbox.Exec(c.code, vars.Snapshot(), func(line string) {
		trace.Logf("[print] %s", line)
	})
	if err != nil {
		trace.Logf("[Code Error] action '%s' (state: %s): %v. Code: '%s'", c.label, stateCtx, err, c.code)
		return &domain.ActionError{Label: c.label, State: stateCtx, Snippet: c.code, Err: err}
	}
	vars.Replace(result)
	trace.Logf("[Action Runtime] Finished: '%s'. Variables now: %s", c.code, vars)
	return nil
}

// EvalCondition evaluates the snippet as an expression against a snapshot
// of the store. Blocked stubs and runtime faults both resolve to false;
// a fault is additionally returned so the caller can report it.
func (c *Callback) EvalCondition(vars *Store, trace *Trace, stateCtx string) (bool, error) {
	if c.blocked {
		trace.Logf("[Condition Blocked by Safety Check] Unsafe code: '%s' evaluated as false.", c.code)
		return false, nil
	}
	trace.Logf("[Condition Runtime] Evaluating: '%s' in state '%s' for '%s' with vars: %s",
		c.code, stateCtx, c.label, vars)
	result, err := sandbox.Eval(c.code, vars.Snapshot(), func(line string) {
		trace.Logf("[print] %s", line)
	})
	if err != nil {
		trace.Logf("[Code Error] condition '%s' (state: %s): %v. Code: '%s'", c.label, stateCtx, err, c.code)
		return false, err
	}
	trace.Logf("[Condition Runtime] Result of '%s': %t", c.code, result)
	return result, nil
}

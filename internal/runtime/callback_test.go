package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/ramify/internal/logging"
	"github.com/dverbeek/ramify/pkg/domain"
)

func newTestTrace() *Trace {
	return NewTrace(0, logging.NewNop())
}

func TestCallback_ActionUpdatesStore(t *testing.T) {
	cb := NewCallback("n = n + 1", KindAction, "entry_Active", nil)
	require.False(t, cb.Blocked())

	vars := NewStore()
	vars.Set("n", 1.0)
	trace := newTestTrace()

	err := cb.RunAction(vars, trace, "Active")
	require.NoError(t, err)

	v, _ := vars.Get("n")
	assert.Equal(t, 2.0, v)

	log := strings.Join(trace.Drain(), "\n")
	assert.Contains(t, log, "[Action Runtime] Executing: 'n = n + 1' in state 'Active' for 'entry_Active'")
	assert.Contains(t, log, "[Action Runtime] Finished: 'n = n + 1'. Variables now: {n=2}")
}

func TestCallback_BlockedActionNeverExecutes(t *testing.T) {
	cb := NewCallback("os.exit(1)", KindAction, "entry_Bad", nil)
	require.True(t, cb.Blocked())
	assert.Contains(t, cb.BlockReason(), "access to 'os' is not allowed")

	vars := NewStore()
	trace := newTestTrace()

	// Invoking the stub twice logs twice; nothing ever runs.
	require.NoError(t, cb.RunAction(vars, trace, "Bad"))
	require.NoError(t, cb.RunAction(vars, trace, "Bad"))

	log := trace.Drain()
	require.Len(t, log, 2)
	for _, entry := range log {
		assert.Contains(t, entry, "[Action Blocked by Safety Check] Unsafe code ignored: 'os.exit(1)'.")
	}
	assert.Equal(t, 0, vars.Len())
}

func TestCallback_ActionRuntimeFault(t *testing.T) {
	cb := NewCallback("n = missing + 1", KindAction, "during_X", nil)
	require.False(t, cb.Blocked())

	vars := NewStore()
	trace := newTestTrace()

	err := cb.RunAction(vars, trace, "X")
	require.Error(t, err)

	var actionErr *domain.ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, "during_X", actionErr.Label)
	assert.Equal(t, "X", actionErr.State)

	log := strings.Join(trace.Drain(), "\n")
	assert.Contains(t, log, "[Code Error]")
	// A faulting action leaves the store untouched.
	assert.Equal(t, 0, vars.Len())
}

func TestCallback_ConditionEvaluates(t *testing.T) {
	cb := NewCallback("n >= 2", KindCondition, "cond_t0_go", nil)
	require.False(t, cb.Blocked())

	vars := NewStore()
	vars.Set("n", 3.0)
	trace := newTestTrace()

	ok, err := cb.EvalCondition(vars, trace, "Idle")
	require.NoError(t, err)
	assert.True(t, ok)

	log := strings.Join(trace.Drain(), "\n")
	assert.Contains(t, log, "[Condition Runtime] Result of 'n >= 2': true")

	vars.Set("n", 1.0)
	ok, err = cb.EvalCondition(vars, trace, "Idle")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCallback_BlockedConditionIsFalse(t *testing.T) {
	cb := NewCallback("io.read() ~= nil", KindCondition, "cond_t0_go", nil)
	require.True(t, cb.Blocked())

	trace := newTestTrace()
	ok, err := cb.EvalCondition(NewStore(), trace, "Idle")
	require.NoError(t, err)
	assert.False(t, ok, "blocked conditions evaluate as false")

	log := strings.Join(trace.Drain(), "\n")
	assert.Contains(t, log, "[Condition Blocked by Safety Check]")
}

func TestCallback_ConditionFaultIsFalseAndReported(t *testing.T) {
	cb := NewCallback("missing.field == 1", KindCondition, "cond_t1_go", nil)
	require.False(t, cb.Blocked())

	trace := newTestTrace()
	ok, err := cb.EvalCondition(NewStore(), trace, "Idle")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestCallback_PrintGoesToTrace(t *testing.T) {
	cb := NewCallback("print('tick', n)", KindAction, "during_Run", nil)
	vars := NewStore()
	vars.Set("n", 7.0)
	trace := newTestTrace()

	require.NoError(t, cb.RunAction(vars, trace, "Run"))

	log := strings.Join(trace.Drain(), "\n")
	assert.Contains(t, log, "[print] tick\t7")
}

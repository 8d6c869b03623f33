package ramify

import (
	"fmt"
	"log/slog"

	"github.com/dverbeek/ramify/internal/logging"
	"github.com/dverbeek/ramify/internal/runtime"
	"github.com/dverbeek/ramify/pkg/domain"
)

// Machine is the high-level entry point: one built specification plus the
// live instance stepping over it. All methods must be called from a
// single goroutine.
type Machine struct {
	spec *runtime.MachineSpec
	inst *runtime.Instance

	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	haltOnError bool
	name        string
}

// Option is a functional option for configuring a Machine.
type Option func(*Machine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithHaltOnActionError opts in to the halting policy: a faulting action
// snippet halts the machine until Reset instead of being absorbed into
// the log.
func WithHaltOnActionError() Option {
	return func(m *Machine) { m.haltOnError = true }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) { m.hooks = hooks }
}

// WithName labels the machine in structured log output.
func WithName(name string) Option {
	return func(m *Machine) { m.name = name }
}

// New builds and initializes a machine from a declarative definition.
// Construction fails with a *domain.DefinitionError on invalid input
// (multiple initial states, an empty top-level machine) and with the
// causal error when initial entry halts under the halting policy.
func New(def *domain.Definition, opts ...Option) (*Machine, error) {
	if def == nil {
		return nil, domain.Definitionf("nil definition")
	}
	m := &Machine{}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.name != "" {
		m.logger = m.logger.With("machine", m.name)
	}

	spec, err := runtime.Build(def, true)
	if err != nil {
		return nil, err
	}
	inst, err := runtime.NewInstance(spec,
		runtime.WithLogger(m.logger),
		runtime.WithHaltOnActionError(m.haltOnError),
		runtime.WithHooks(m.hooks),
	)
	if err != nil {
		return nil, fmt.Errorf("machine initialization failed: %w", err)
	}
	m.spec = spec
	m.inst = inst
	return m, nil
}

// Step advances the machine on an event, or performs an internal tick
// when event is empty. It returns the hierarchical state name and the
// action log entries accumulated since the last drain. Recoverable
// problems are reported through the log, never as errors.
func (m *Machine) Step(event string) (state string, log []string) {
	return m.inst.Step(event)
}

// Reset discards the runtime state and rebuilds a fresh instance from the
// already-validated specification.
func (m *Machine) Reset() error {
	return m.inst.Reset()
}

// CurrentState returns the hierarchical state name, parenthesized when a
// child machine is active: "Parent (Child)".
func (m *Machine) CurrentState() string {
	return m.inst.StateName()
}

// LeafState returns the deepest active state name.
func (m *Machine) LeafState() string {
	return m.inst.LeafStateName()
}

// Variables returns a stringified snapshot of the machine's variables,
// with an active child's variables namespaced under its superstate name.
func (m *Machine) Variables() map[string]string {
	return m.inst.Variables()
}

// PossibleEvents returns the sorted, de-duplicated events dispatchable
// from the current state, including an active child's events.
func (m *Machine) PossibleEvents() []string {
	return m.inst.PossibleEvents()
}

// Halted reports whether the machine stopped accepting steps and needs a
// Reset.
func (m *Machine) Halted() bool {
	return m.inst.Halted()
}

// DrainLog returns buffered log entries (for example the initialization
// trace) and clears the buffer.
func (m *Machine) DrainLog() []string {
	return m.inst.DrainLog()
}

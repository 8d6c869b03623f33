// Package dsl provides a fluent builder for declaring machines in Go
// code, as an alternative to loading a YAML document. The builder only
// produces a domain.Definition; validation happens when the definition is
// built into a machine.
package dsl

import "github.com/dverbeek/ramify/pkg/domain"

// Builder accumulates states and transitions for one machine level.
type Builder struct {
	states      []*domain.State
	byName      map[string]*domain.State
	transitions []domain.Transition
}

// New creates a machine definition builder.
func New() *Builder {
	return &Builder{byName: make(map[string]*domain.State)}
}

// State creates or retrieves a state by name, preserving declaration
// order.
func (b *Builder) State(name string) *StateBuilder {
	if st, ok := b.byName[name]; ok {
		return &StateBuilder{b: b, state: st}
	}
	st := &domain.State{Name: name}
	b.states = append(b.states, st)
	b.byName[name] = st
	return &StateBuilder{b: b, state: st}
}

// Transition declares a transition between two states.
func (b *Builder) Transition(source, target string) *TransitionBuilder {
	b.transitions = append(b.transitions, domain.Transition{Source: source, Target: target})
	return &TransitionBuilder{b: b, idx: len(b.transitions) - 1}
}

// Definition assembles the declared states and transitions.
func (b *Builder) Definition() *domain.Definition {
	def := &domain.Definition{
		States:      make([]domain.State, 0, len(b.states)),
		Transitions: append([]domain.Transition(nil), b.transitions...),
	}
	for _, st := range b.states {
		def.States = append(def.States, *st)
	}
	return def
}

// StateBuilder configures one state.
type StateBuilder struct {
	b     *Builder
	state *domain.State
}

// Initial marks the state as the level's initial state.
func (sb *StateBuilder) Initial() *StateBuilder {
	sb.state.Initial = true
	return sb
}

// Final marks the state as terminal.
func (sb *StateBuilder) Final() *StateBuilder {
	sb.state.Final = true
	return sb
}

// Entry attaches an entry action snippet.
func (sb *StateBuilder) Entry(code string) *StateBuilder {
	sb.state.EntryAction = code
	return sb
}

// During attaches a during action snippet.
func (sb *StateBuilder) During(code string) *StateBuilder {
	sb.state.DuringAction = code
	return sb
}

// Exit attaches an exit action snippet.
func (sb *StateBuilder) Exit(code string) *StateBuilder {
	sb.state.ExitAction = code
	return sb
}

// Sub marks the state as a superstate owning the given nested definition.
func (sb *StateBuilder) Sub(def *domain.Definition) *StateBuilder {
	sb.state.Superstate = true
	sb.state.SubMachine = def
	return sb
}

// State hands back to the level builder, for chained declarations.
func (sb *StateBuilder) State(name string) *StateBuilder {
	return sb.b.State(name)
}

// Transition hands back to the level builder, for chained declarations.
func (sb *StateBuilder) Transition(source, target string) *TransitionBuilder {
	return sb.b.Transition(source, target)
}

// TransitionBuilder configures one transition.
type TransitionBuilder struct {
	b   *Builder
	idx int
}

// On sets the triggering event identifier.
func (tb *TransitionBuilder) On(event string) *TransitionBuilder {
	tb.b.transitions[tb.idx].Event = event
	return tb
}

// When attaches a guard condition snippet.
func (tb *TransitionBuilder) When(code string) *TransitionBuilder {
	tb.b.transitions[tb.idx].Condition = code
	return tb
}

// Do attaches a transition action snippet.
func (tb *TransitionBuilder) Do(code string) *TransitionBuilder {
	tb.b.transitions[tb.idx].Action = code
	return tb
}

// State hands back to the level builder, for chained declarations.
func (tb *TransitionBuilder) State(name string) *StateBuilder {
	return tb.b.State(name)
}

// Transition hands back to the level builder, for chained declarations.
func (tb *TransitionBuilder) Transition(source, target string) *TransitionBuilder {
	return tb.b.Transition(source, target)
}

// Definition assembles the declared states and transitions.
func (tb *TransitionBuilder) Definition() *domain.Definition {
	return tb.b.Definition()
}

// Definition assembles the declared states and transitions.
func (sb *StateBuilder) Definition() *domain.Definition {
	return sb.b.Definition()
}

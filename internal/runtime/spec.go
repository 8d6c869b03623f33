package runtime

import (
	"sort"

	"github.com/dverbeek/ramify/pkg/domain"
)

// MachineSpec is the validated, immutable result of building one level of
// declarative data. Instances are created from it and discarded; the spec
// itself is never mutated after Build returns.
type MachineSpec struct {
	states  map[string]*StateSpec
	order   []string
	initial string
	// transitions is keyed source state, then event. Multiple records on
	// the same (source, event) pair stay in declaration order; the first
	// one whose condition passes fires.
	transitions map[string]map[string][]*TransitionSpec
	warnings    []string
}

// StateSpec is one resolved state with its compiled callbacks.
type StateSpec struct {
	Name       string
	Final      bool
	Superstate bool
	Sub        *domain.Definition
	Entry      *Callback
	During     *Callback
	Exit       *Callback
}

// TransitionSpec is one resolved transition with its compiled guard and
// action.
type TransitionSpec struct {
	Source string
	Target string
	Event  string
	Cond   *Callback
	Action *Callback
}

// Initial returns the resolved initial state name.
func (s *MachineSpec) Initial() string { return s.initial }

// State returns the spec for a state name, or nil.
func (s *MachineSpec) State(name string) *StateSpec { return s.states[name] }

// Empty reports a spec with no states (a permitted inert nested level).
func (s *MachineSpec) Empty() bool { return len(s.states) == 0 }

// Warnings returns the non-fatal findings collected during Build.
func (s *MachineSpec) Warnings() []string { return s.warnings }

// EventsFrom returns the sorted, de-duplicated event identifiers
// dispatchable from the given state at this level.
func (s *MachineSpec) EventsFrom(state string) []string {
	byEvent := s.transitions[state]
	events := make([]string, 0, len(byEvent))
	for event := range byEvent {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

func (s *MachineSpec) candidates(state, event string) []*TransitionSpec {
	return s.transitions[state][event]
}

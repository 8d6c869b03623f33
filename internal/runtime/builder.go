package runtime

import (
	"fmt"
	"strings"

	"github.com/dverbeek/ramify/pkg/domain"
)

// Build validates one level of declarative data and compiles it into a
// MachineSpec. topLevel distinguishes the root machine, which must have
// at least one state, from a nested level, where an empty definition is
// permitted and yields an inert spec.
//
// Two states marked initial is a DefinitionError. Everything else that is
// off (no initial mark, duplicate state names, transitions referencing
// unknown states, missing event identifiers) is repaired and recorded as
// a warning, which the instance writes into its action log.
func Build(def *domain.Definition, topLevel bool) (*MachineSpec, error) {
	spec := &MachineSpec{
		states:      make(map[string]*StateSpec),
		transitions: make(map[string]map[string][]*TransitionSpec),
	}
	if def == nil {
		def = &domain.Definition{}
	}

	known := map[string]struct{}{}

	for _, st := range def.States {
		if st.Name == "" {
			return nil, domain.Definitionf("state with empty name")
		}
		if _, dup := spec.states[st.Name]; dup {
			spec.warnf("Duplicate state '%s' ignored.", st.Name)
			continue
		}
		if st.Initial {
			if spec.initial != "" {
				return nil, domain.Definitionf("multiple initial states defined: '%s' and '%s'", spec.initial, st.Name)
			}
			spec.initial = st.Name
		}
		ss := &StateSpec{
			Name:       st.Name,
			Final:      st.Final,
			Superstate: st.Superstate,
			Sub:        st.SubMachine,
		}
		if strings.TrimSpace(st.EntryAction) != "" {
			ss.Entry = NewCallback(st.EntryAction, KindAction, "entry_"+st.Name, known)
			spec.noteBlocked(ss.Entry)
		}
		if strings.TrimSpace(st.DuringAction) != "" {
			ss.During = NewCallback(st.DuringAction, KindAction, "during_"+st.Name, known)
			spec.noteBlocked(ss.During)
		}
		if strings.TrimSpace(st.ExitAction) != "" {
			ss.Exit = NewCallback(st.ExitAction, KindAction, "exit_"+st.Name, known)
			spec.noteBlocked(ss.Exit)
		}
		spec.states[st.Name] = ss
		spec.order = append(spec.order, st.Name)
	}

	if len(spec.states) == 0 {
		if topLevel {
			return nil, domain.Definitionf("no states defined")
		}
		return spec, nil
	}

	if spec.initial == "" {
		spec.initial = spec.order[0]
		spec.warnf("No initial state explicitly defined. Using first state '%s' as initial.", spec.initial)
	}

	if len(def.Transitions) == 0 {
		spec.warnf("Machine has states but no transitions. Only state actions can run.")
	}

	for i, tr := range def.Transitions {
		event := tr.Event
		if event == "" {
			event = synthesizeEvent(i, tr.Source, tr.Target)
			spec.warnf("Transition %s->%s has no event. Synthetic event ID: %s", tr.Source, tr.Target, event)
		}
		if spec.states[tr.Source] == nil || spec.states[tr.Target] == nil {
			spec.warnf("Skipping transition for event '%s' from '%s' to '%s' due to unknown state(s).", event, tr.Source, tr.Target)
			continue
		}
		ts := &TransitionSpec{Source: tr.Source, Target: tr.Target, Event: event}
		if strings.TrimSpace(tr.Condition) != "" {
			ts.Cond = NewCallback(tr.Condition, KindCondition, fmt.Sprintf("cond_t%d_%s", i, event), known)
			spec.noteBlocked(ts.Cond)
		}
		if strings.TrimSpace(tr.Action) != "" {
			ts.Action = NewCallback(tr.Action, KindAction, fmt.Sprintf("action_t%d_%s", i, event), known)
			spec.noteBlocked(ts.Action)
		}
		if spec.transitions[tr.Source] == nil {
			spec.transitions[tr.Source] = make(map[string][]*TransitionSpec)
		}
		spec.transitions[tr.Source][event] = append(spec.transitions[tr.Source][event], ts)
	}

	return spec, nil
}

func (s *MachineSpec) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// noteBlocked records a safety-check rejection so the instance can log it
// once at initialization; the stub itself logs again on every invocation.
func (s *MachineSpec) noteBlocked(cb *Callback) {
	if cb.Blocked() {
		s.warnf("[Safety Check Failed] Code execution blocked for '%s'. Reason: %s", cb.Label(), cb.BlockReason())
	}
}

// synthesizeEvent builds the deterministic identifier for a transition
// declared without one, sanitized to identifier characters.
func synthesizeEvent(idx int, source, target string) string {
	raw := fmt.Sprintf("_internal_t%d_%s_to_%s", idx, source, target)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

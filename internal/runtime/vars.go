// Package runtime compiles declarative machine definitions into immutable
// specifications and steps mutable engine instances over them. It is the
// core of ramify: variable stores, guarded snippet callbacks, the machine
// builder and the hierarchical stepper all live here.
package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Store is the named-value namespace owned by one machine level. Actions
// read and write it; conditions only ever see a snapshot. A child
// instance owns its own separate Store.
type Store struct {
	values map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// Get returns the value bound to name.
func (s *Store) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set binds name to value.
func (s *Store) Set(name string, value any) {
	s.values[name] = value
}

// Names returns the bound names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameSet returns the bound names as a set, for the safety checker.
func (s *Store) NameSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.values))
	for name := range s.values {
		set[name] = struct{}{}
	}
	return set
}

// Snapshot returns a shallow copy of the bindings.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for name, value := range s.values {
		out[name] = value
	}
	return out
}

// Replace swaps in a whole new binding set. Used after an action snippet
// runs: the sandbox returns the resulting globals wholesale, so names the
// snippet cleared disappear here too.
func (s *Store) Replace(values map[string]any) {
	if values == nil {
		values = make(map[string]any)
	}
	s.values = values
}

// Clear removes every binding.
func (s *Store) Clear() {
	s.values = make(map[string]any)
}

// Len returns the number of bindings.
func (s *Store) Len() int {
	return len(s.values)
}

// String renders the bindings sorted by name, for deterministic log
// entries: "{n=2, running=true}".
func (s *Store) String() string {
	names := s.Names()
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(formatValue(s.values[name]))
	}
	b.WriteByte('}')
	return b.String()
}

// Stringified returns the bindings as display strings, the shape the
// embedding caller consumes.
func (s *Store) Stringified() map[string]string {
	out := make(map[string]string, len(s.values))
	for name, value := range s.values {
		out[name] = formatValue(value)
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

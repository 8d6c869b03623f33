// Package ramify is a hierarchical finite-state-machine execution engine.
//
// A machine is declared as data: states with optional entry/during/exit
// snippets, and transitions with optional guard and action snippets. A
// state may be a superstate owning a nested machine that runs while the
// superstate is active. Snippets are Lua, vetted by a static safety
// checker before they may execute and run inside a restricted interpreter
// without imports, file access or reflection.
//
// The engine is stepped cooperatively by the caller, one event (or one
// internal tick) at a time, and reports back through a drainable
// human-readable action log:
//
//	def := &domain.Definition{
//		States: []domain.State{
//			{Name: "Idle", Initial: true, EntryAction: "n = 0"},
//			{Name: "Active", DuringAction: "n = n + 1"},
//		},
//		Transitions: []domain.Transition{
//			{Source: "Idle", Target: "Active", Event: "go"},
//		},
//	}
//	m, err := ramify.New(def)
//	...
//	state, log := m.Step("go") // state == "Active"
//	state, log = m.Step("")    // internal tick: n == 1
//
// Machines are single-threaded: each Machine tree must be driven from one
// goroutine. Run independent machines on independent Machine values.
package ramify

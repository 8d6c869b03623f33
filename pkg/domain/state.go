package domain

// State declares one state at a single machine level.
//
// Snippet fields hold raw, untrusted code. They are vetted by the sandbox
// checker before a callback is ever produced for them; an empty string
// means "no action".
type State struct {
	Name string `json:"name" yaml:"name"`

	// Initial marks the state the machine starts in. At most one state
	// per level may set this; if none does, the first declared state is
	// promoted with a logged warning.
	Initial bool `json:"is_initial,omitempty" yaml:"is_initial,omitempty"`

	// Final marks a terminal state. When the current state of an active
	// sub-machine is final, the owning superstate's level gains a
	// "<superstate>_sub_completed" variable.
	Final bool `json:"is_final,omitempty" yaml:"is_final,omitempty"`

	EntryAction  string `json:"entry_action,omitempty" yaml:"entry_action,omitempty"`
	DuringAction string `json:"during_action,omitempty" yaml:"during_action,omitempty"`
	ExitAction   string `json:"exit_action,omitempty" yaml:"exit_action,omitempty"`

	// Superstate marks a state that owns a nested machine while active.
	Superstate bool `json:"is_superstate,omitempty" yaml:"is_superstate,omitempty"`

	// SubMachine holds the nested definition for a superstate. A
	// superstate with a nil or state-less SubMachine is legal; it simply
	// never spawns a child.
	SubMachine *Definition `json:"sub_machine,omitempty" yaml:"sub_machine,omitempty"`
}

package domain

// Transition declares a rule to move between two states of the same level.
type Transition struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// Event identifies the trigger. When empty, a deterministic
	// identifier is synthesized from the source, target and declaration
	// index at build time.
	Event string `json:"event,omitempty" yaml:"event,omitempty"`

	// Condition is a boolean snippet that must evaluate true for the
	// transition to fire. It runs against a read-only snapshot of the
	// level's variables. Empty means "always".
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Action is a snippet executed while the transition fires, before
	// the source state is exited.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Definition is one level of a machine: a sequence of states plus the
// transitions between them. Superstates nest further Definitions.
type Definition struct {
	States      []State      `json:"states" yaml:"states"`
	Transitions []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/ramify/pkg/dsl"
)

func TestBuilder_StatesAndTransitions(t *testing.T) {
	def := dsl.New().
		State("Idle").Initial().Entry("n = 0").
		State("Active").During("n = n + 1").Exit("print('bye')").
		Transition("Idle", "Active").On("go").When("n == 0").Do("hops = 1").
		Definition()

	require.Len(t, def.States, 2)
	idle := def.States[0]
	assert.Equal(t, "Idle", idle.Name)
	assert.True(t, idle.Initial)
	assert.Equal(t, "n = 0", idle.EntryAction)

	active := def.States[1]
	assert.Equal(t, "n = n + 1", active.DuringAction)
	assert.Equal(t, "print('bye')", active.ExitAction)

	require.Len(t, def.Transitions, 1)
	tr := def.Transitions[0]
	assert.Equal(t, "Idle", tr.Source)
	assert.Equal(t, "Active", tr.Target)
	assert.Equal(t, "go", tr.Event)
	assert.Equal(t, "n == 0", tr.Condition)
	assert.Equal(t, "hops = 1", tr.Action)
}

func TestBuilder_StateIsReentrant(t *testing.T) {
	def := dsl.New().
		State("A").Entry("x = 1").
		State("B").
		State("A").Final().
		Definition()

	require.Len(t, def.States, 2, "revisiting a state augments it, not duplicates it")
	assert.Equal(t, "x = 1", def.States[0].EntryAction)
	assert.True(t, def.States[0].Final)
	assert.Equal(t, []string{"A", "B"}, []string{def.States[0].Name, def.States[1].Name})
}

func TestBuilder_SubMachine(t *testing.T) {
	sub := dsl.New().
		State("Fetch").Initial().
		State("Store").Final().
		Transition("Fetch", "Store").On("stored").
		Definition()

	def := dsl.New().
		State("Pipeline").Initial().Sub(sub).
		State("Idle").
		Transition("Pipeline", "Idle").On("drain").
		Definition()

	pipeline := def.States[0]
	assert.True(t, pipeline.Superstate)
	require.NotNil(t, pipeline.SubMachine)
	assert.Len(t, pipeline.SubMachine.States, 2)
}

func TestBuilder_DefinitionIsDetached(t *testing.T) {
	b := dsl.New()
	b.State("A").Initial()
	def := b.Definition()

	b.State("A").Final()
	assert.False(t, def.States[0].Final, "a built definition is a snapshot")
}

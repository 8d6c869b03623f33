package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/ramify/internal/cli"
	"github.com/dverbeek/ramify/internal/logging"
)

const counterDoc = `
states:
  - name: Idle
    is_initial: true
    entry_action: "n = 0"
  - name: Active
    during_action: "n = n + 1"
transitions:
  - source: Idle
    target: Active
    event: go
`

func writeMachine(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(counterDoc), 0644))
	return path
}

func TestRun_Session(t *testing.T) {
	var out bytes.Buffer
	err := cli.Run(cli.RunOptions{
		Path:   writeMachine(t),
		Logger: logging.NewNop(),
		In:     strings.NewReader("go\n\n:vars\n:quit\n"),
		Out:    &out,
	})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "state: Idle")
	assert.Contains(t, output, "state: Active")
	assert.Contains(t, output, "n = 1")
	assert.Contains(t, output, "Machine initialized. Current state: Idle")
}

func TestRun_Reset(t *testing.T) {
	var out bytes.Buffer
	err := cli.Run(cli.RunOptions{
		Path:   writeMachine(t),
		Logger: logging.NewNop(),
		In:     strings.NewReader("go\n:reset\n:quit\n"),
		Out:    &out,
	})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Machine reset. Current state: Idle")
}

func TestRun_MissingFile(t *testing.T) {
	err := cli.Run(cli.RunOptions{
		Path:   filepath.Join(t.TempDir(), "absent.yaml"),
		Logger: logging.NewNop(),
		In:     strings.NewReader(""),
		Out:    &bytes.Buffer{},
	})
	require.Error(t, err)
}

func TestRun_EOFEndsSession(t *testing.T) {
	err := cli.Run(cli.RunOptions{
		Path:   writeMachine(t),
		Logger: logging.NewNop(),
		In:     strings.NewReader(""),
		Out:    &bytes.Buffer{},
	})
	require.NoError(t, err)
}

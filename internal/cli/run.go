// Package cli implements the interactive stepper behind `ramify run`.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/dverbeek/ramify"
	"github.com/dverbeek/ramify/pkg/schema"
)

// RunOptions configures an interactive session.
type RunOptions struct {
	Path              string
	HaltOnActionError bool
	Logger            *slog.Logger
	In                io.Reader
	Out               io.Writer
}

// Run loads a machine definition and drives it as a line-oriented REPL:
// an event name dispatches that event, an empty line performs an internal
// tick, and the commands :vars, :reset and :quit are handled locally.
func Run(opts RunOptions) error {
	def, err := schema.LoadFile(opts.Path)
	if err != nil {
		return err
	}

	machineOpts := []ramify.Option{
		ramify.WithLogger(opts.Logger),
		ramify.WithName(opts.Path),
	}
	if opts.HaltOnActionError {
		machineOpts = append(machineOpts, ramify.WithHaltOnActionError())
	}
	m, err := ramify.New(def, machineOpts...)
	if err != nil {
		return fmt.Errorf("failed to build machine: %w", err)
	}

	out := opts.Out
	printLog(out, m.DrainLog())
	printStatus(out, m)

	scanner := bufio.NewScanner(opts.In)
	for {
		fmt.Fprint(out, "event> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case ":quit", ":q":
			return scanner.Err()
		case ":vars":
			printVars(out, m.Variables())
			continue
		case ":reset":
			if err := m.Reset(); err != nil {
				fmt.Fprintf(out, "reset failed: %v\n", err)
				return err
			}
			printLog(out, m.DrainLog())
			printStatus(out, m)
			continue
		}

		_, log := m.Step(line)
		printLog(out, log)
		printStatus(out, m)
	}
	return scanner.Err()
}

func printStatus(out io.Writer, m *ramify.Machine) {
	fmt.Fprintf(out, "state: %s\n", m.CurrentState())
	if m.Halted() {
		fmt.Fprintln(out, "machine is HALTED; use :reset to continue")
	}
	if events := m.PossibleEvents(); len(events) > 0 {
		fmt.Fprintf(out, "events: %s\n", strings.Join(events, ", "))
	}
}

func printLog(out io.Writer, entries []string) {
	for _, entry := range entries {
		fmt.Fprintf(out, "  %s\n", entry)
	}
}

func printVars(out io.Writer, vars map[string]string) {
	if len(vars) == 0 {
		fmt.Fprintln(out, "(no variables)")
		return
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s = %s\n", name, vars[name])
	}
}

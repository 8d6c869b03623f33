// Package schema loads machine definition documents. Documents are YAML
// (JSON parses as a YAML subset) matching the pkg/domain record shapes:
//
//	states:
//	  - name: Idle
//	    is_initial: true
//	    entry_action: "n = 0"
//	  - name: Active
//	    during_action: "n = n + 1"
//	transitions:
//	  - source: Idle
//	    target: Active
//	    event: go
//
// Layout or visual hints stored alongside these fields by an editor are
// ignored by the decoder.
package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dverbeek/ramify/pkg/domain"
)

// Load decodes one machine definition document.
func Load(r io.Reader) (*domain.Definition, error) {
	var def domain.Definition
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode machine definition: %w", err)
	}
	return &def, nil
}

// LoadFile reads and decodes a machine definition file.
func LoadFile(path string) (*domain.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	def, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Lint reports structural findings on a definition without building it:
// duplicate or empty state names, dangling transition endpoints, multiple
// initial marks. The engine repairs most of these at build time; Lint
// exists so `ramify validate` can surface them to an author first.
func Lint(def *domain.Definition) []string {
	var findings []string
	findings = lintLevel(def, "", findings)
	return findings
}

func lintLevel(def *domain.Definition, path string, findings []string) []string {
	if def == nil {
		return findings
	}
	at := func(msg string) string {
		if path == "" {
			return msg
		}
		return path + ": " + msg
	}

	seen := make(map[string]bool)
	initial := ""
	for _, st := range def.States {
		if st.Name == "" {
			findings = append(findings, at("state with empty name"))
			continue
		}
		if seen[st.Name] {
			findings = append(findings, at(fmt.Sprintf("duplicate state name %q", st.Name)))
		}
		seen[st.Name] = true
		if st.Initial {
			if initial != "" {
				findings = append(findings, at(fmt.Sprintf("multiple initial states: %q and %q", initial, st.Name)))
			}
			initial = st.Name
		}
		if st.SubMachine != nil && !st.Superstate {
			findings = append(findings, at(fmt.Sprintf("state %q has a sub_machine but is not marked is_superstate", st.Name)))
		}
		if st.Superstate && st.SubMachine != nil {
			findings = lintLevel(st.SubMachine, joinPath(path, st.Name), findings)
		}
	}
	if initial == "" && len(def.States) > 0 {
		findings = append(findings, at(fmt.Sprintf("no initial state marked; %q will be promoted", def.States[0].Name)))
	}

	for i, tr := range def.Transitions {
		if tr.Source == "" || tr.Target == "" {
			findings = append(findings, at(fmt.Sprintf("transition %d is missing source or target", i)))
			continue
		}
		if !seen[tr.Source] {
			findings = append(findings, at(fmt.Sprintf("transition %d references unknown source %q", i, tr.Source)))
		}
		if !seen[tr.Target] {
			findings = append(findings, at(fmt.Sprintf("transition %d references unknown target %q", i, tr.Target)))
		}
	}
	return findings
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

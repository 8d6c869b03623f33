package main

import (
	"fmt"
	"os"

	"github.com/dverbeek/ramify/internal/runtime"
	"github.com/dverbeek/ramify/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <machine.yaml>",
	Short: "Check a machine definition for consistency",
	Long:  `Loads a machine definition and reports structural problems and snippets rejected by the safety check, without executing anything.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		findings, err := runValidate(args[0])
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		for _, finding := range findings {
			fmt.Printf("warning: %s\n", finding)
		}
		if len(findings) > 0 {
			os.Exit(1)
		}
		fmt.Println("Machine definition is valid.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) ([]string, error) {
	def, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}

	findings := schema.Lint(def)

	// Building the specification surfaces the problems linting cannot see,
	// such as snippets rejected by the safety check.
	spec, err := runtime.Build(def, true)
	if err != nil {
		return nil, err
	}
	findings = append(findings, spec.Warnings()...)
	return findings, nil
}

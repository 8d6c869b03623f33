package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ramify",
	Short: "Ramify is a hierarchical state machine execution engine",
	Long:  `Ramify runs hierarchical state machine definitions whose entry, during, exit, condition and action snippets execute in a sandboxed Lua environment.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().Bool("halt-on-error", false, "Halt the machine when an action snippet fails")
}

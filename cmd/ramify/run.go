package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dverbeek/ramify/internal/cli"
	"github.com/dverbeek/ramify/internal/logging"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <machine.yaml>",
	Short: "Run a machine definition interactively",
	Long:  `Loads a machine definition and steps it from the terminal: type an event name to dispatch it, or an empty line for an internal tick.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		haltOnError, _ := cmd.Flags().GetBool("halt-on-error")

		err := cli.Run(cli.RunOptions{
			Path:              args[0],
			HaltOnActionError: haltOnError,
			Logger:            commandLogger(cmd),
			In:                os.Stdin,
			Out:               os.Stdout,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

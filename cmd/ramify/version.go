package main

import (
	"fmt"
	"strings"

	"github.com/dverbeek/ramify"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ramify",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ramify version %s\n", strings.TrimSpace(ramify.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

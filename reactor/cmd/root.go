// Package cmd provides the command-line interface for Reactor.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reactor",
	Short: "Reactor runs discrete-event simulations of reaction networks.",
	Long: `Reactor runs discrete-event simulations of reaction networks. ` +
		`Reactions are scheduled by their next occurrence time and fired ` +
		`one at a time, or in parallel batches.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

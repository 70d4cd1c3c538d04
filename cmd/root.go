// Package cmd is the thin command-line driver around the engine, config,
// trace, and report collaborators (spec.md §1: explicitly out of scope
// for the core, specified only by the interfaces it consumes/produces).
//
// Grounded on the teacher's cmd/root.go: a cobra root command, a
// logrus-backed "--log" level flag, subcommands registered from init.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "accel-sim",
	Short: "Discrete-event simulator for a multi-accelerator inference serving cluster",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(calibrateCmd)
}

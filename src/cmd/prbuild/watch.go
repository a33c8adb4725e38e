package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/tui"
)

// watchCmd opens the interactive panel
var watchCmd = &cobra.Command{
	Use:   "watch [pull-request-url]",
	Short: "Open the interactive build panel",
	Long: `Show the build panel in the terminal. Select a build and press r to
queue it, R to refresh, q to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		// The TUI owns the terminal; logging would corrupt it.
		svc := newLocalService(logger.NewSilentLogger())

		if err := tui.Run(ctx, svc, args[0]); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

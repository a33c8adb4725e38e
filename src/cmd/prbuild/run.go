package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/pipeline"
)

// runCmd queues a build and shows the refreshed panel
var runCmd = &cobra.Command{
	Use:   "run [pull-request-url] [build-type]",
	Short: "Queue a TeamCity build for a pull request",
	Long: `Queue a build of one configured build type on the pull request's
branch, then print the refreshed panel.

Example:
  prbuild run https://github.com/org/CasePro/pull/42 CasePro_Pulls`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageURL, buildType := args[0], args[1]

		ctx, cancel := signalContext()
		defer cancel()

		svc := newLocalService(logger.NewConsoleLogger(debug))

		outcome, err := svc.RunBuild(ctx, pageURL, buildType)
		if err != nil {
			return err
		}
		writeOutcome(os.Stdout, buildType, outcome)

		state, err := svc.Render(ctx, pageURL)
		if err != nil {
			return err
		}
		writePanel(os.Stdout, state)
		return nil
	},
}

// writeOutcome acknowledges a run request.
func writeOutcome(w io.Writer, buildType string, outcome *pipeline.RunOutcome) {
	fmt.Fprintf(w, "%s: %s (state: %s)\n", outcome.Message(), buildType, outcome.State)
	if outcome.WebURL != "" {
		fmt.Fprintf(w, "  %s\n", outcome.WebURL)
	}
	fmt.Fprintln(w)
}

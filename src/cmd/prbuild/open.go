package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"prbuild-agent/src/broker"
	"prbuild-agent/src/contracts"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/navigation"
	"prbuild-agent/src/pipeline"
)

var openTimeout time.Duration

// openCmd announces a page the way the browser does on navigation
var openCmd = &cobra.Command{
	Use:   "open [pull-request-url]",
	Short: "Publish a page-opened event and print the rendered panel",
	Long: `Publish a PullOpened event on the navigation topic and wait for the
navigation agent of 'prbuild serve' to publish the panel.

In Local Mode a navigation agent is started in this process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageURL := args[0]

		ctx, cancel := signalContext()
		defer cancel()

		log := logger.NewConsoleLogger(debug)
		rt, err := pipeline.NewRuntime(ctx, runtimeOptions(), log)
		if err != nil {
			return err
		}
		defer rt.Close()

		agentCtx, stopAgent := context.WithCancel(ctx)
		defer stopAgent()
		if rt.Mode == pipeline.LocalMode {
			if err := startAgent(agentCtx, navigation.NewAgent(rt.Broker, newLocalService(log), log)); err != nil {
				return err
			}
		}

		panels, err := rt.Broker.Subscribe(agentCtx, contracts.TopicPanels, "prbuild-open-"+uuid.NewString())
		if err != nil {
			return err
		}

		rendered, err := openPage(ctx, rt.Broker, panels, pageURL, openTimeout)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rendered)
	},
}

func init() {
	openCmd.Flags().DurationVar(&openTimeout, "timeout", 60*time.Second, "how long to wait for the panel")
}

// openPage publishes the navigation event and waits for the panel of the
// same URL. Panels for other pages are skipped.
func openPage(ctx context.Context, brk broker.Broker, panels <-chan broker.Message, pageURL string, timeout time.Duration) (*contracts.PanelRendered, error) {
	event := contracts.PullOpened{URL: pageURL, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	if err := brk.Publish(ctx, contracts.TopicNavigation, pageURL, data); err != nil {
		return nil, fmt.Errorf("failed to publish page event: %w", err)
	}

	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-panels:
			if !ok {
				return nil, broker.ErrClosed
			}
			var rendered contracts.PanelRendered
			if err := json.Unmarshal(msg.Value, &rendered); err != nil {
				continue
			}
			if rendered.URL == pageURL {
				return &rendered, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("no panel for %s after %s", pageURL, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

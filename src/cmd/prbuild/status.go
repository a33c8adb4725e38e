package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prbuild-agent/src/broker"
	"prbuild-agent/src/config"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/messaging"
	"prbuild-agent/src/navigation"
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/teamcity"
	"prbuild-agent/src/tui"
)

var (
	statusJSON  bool
	statusAgent bool
)

// statusCmd renders the panel once
var statusCmd = &cobra.Command{
	Use:   "status [pull-request-url]",
	Short: "Show the build panel for a pull request",
	Long: `Query TeamCity for every build configured for the page's repository
and print one row per build.

With --agent the queries go through the broker to a running 'prbuild serve'
(Distributed Mode) or to an agent started in this process (Local Mode).
Only the agent needs TeamCity credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		log := logger.NewConsoleLogger(debug)
		svc := newLocalService(log)
		if statusAgent {
			remote, closeFn, err := newAgentService(ctx, log)
			if err != nil {
				return err
			}
			defer closeFn()
			svc = remote
		}

		state, err := svc.Render(ctx, args[0])
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(navigation.Rendered(state, time.Now()))
		} else {
			writePanel(os.Stdout, state)
		}

		if state.Kind != pipeline.PanelReady {
			return &exitError{code: 2}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the panel as JSON")
	statusCmd.Flags().BoolVar(&statusAgent, "agent", false, "query TeamCity through the messaging agent")
}

// newAgentService returns a service whose CI calls travel over the broker.
// In Local Mode an agent is started in-process to answer them.
func newAgentService(ctx context.Context, log logger.Logger) (*pipeline.Service, func(), error) {
	rt, err := pipeline.NewRuntime(ctx, runtimeOptions(), log)
	if err != nil {
		return nil, nil, err
	}

	agentCtx, stopAgent := context.WithCancel(ctx)
	if rt.Mode == pipeline.LocalMode {
		if _, err := rt.LoadConfig(ctx, appConfig); err != nil {
			stopAgent()
			rt.Close()
			return nil, nil, err
		}
		handler := messaging.NewHandler(newLocalService(log), teamcityFactory, rt.Store, log)
		if err := startAgent(agentCtx, messaging.NewAgent(rt.Broker, handler, log)); err != nil {
			stopAgent()
			rt.Close()
			return nil, nil, err
		}
	}

	client, err := messaging.NewClient(agentCtx, rt.Broker, log,
		messaging.WithTimeout(appConfig.RequestTimeout()),
		messaging.WithLinker(localLinker()))
	if err != nil {
		stopAgent()
		rt.Close()
		return nil, nil, err
	}

	svc := pipeline.NewService(appConfig, clientFactory(client), log)
	closeFn := func() {
		stopAgent()
		rt.Close()
	}
	return svc, closeFn, nil
}

// clientFactory ignores the snapshot: the agent holds its own configuration.
func clientFactory(client *messaging.Client) pipeline.ProviderFactory {
	return func(_ *config.Config) provider.Provider { return client }
}

// localLinker builds links locally so the panel can show them even
// though queries go through the agent.
func localLinker() provider.Linker {
	return teamcity.NewProviderFromConfig(appConfig)
}

// listener is an agent whose subscription can be taken before it serves.
type listener interface {
	Listen(ctx context.Context) (<-chan broker.Message, error)
	Serve(ctx context.Context, msgChan <-chan broker.Message) error
}

// startAgent subscribes an in-process agent and serves it in the background.
// The in-memory broker does not retain messages, so the subscription must
// exist before the first publish.
func startAgent(ctx context.Context, agent listener) error {
	msgChan, err := agent.Listen(ctx)
	if err != nil {
		return err
	}
	go func() { _ = agent.Serve(ctx, msgChan) }()
	return nil
}

// writePanel prints the panel as a table, or a one-line explanation.
func writePanel(w io.Writer, state *pipeline.PanelState) {
	if state.Kind != pipeline.PanelReady {
		fmt.Fprintln(w, tui.StateMessage(state))
		return
	}

	fmt.Fprintf(w, "%s #%s\n\n", state.Repository, state.ChangeRef)

	items := tui.ItemsFromPanel(state.Panel)
	d := tui.NewDelegate()
	d.SetColumnWidths(items)

	nameWidth := 4
	for _, item := range items {
		nameWidth = max(nameWidth, tui.VisualWidth(item.Title()))
	}
	nameWidth = min(nameWidth, 40)

	for _, item := range items {
		fmt.Fprintln(w, d.Columns(item, nameWidth))
		if item.Row.WebURL != "" {
			fmt.Fprintf(w, "    %s\n", item.Row.WebURL)
		}
	}

	if problems := state.Panel.Problems(); len(problems) > 0 {
		fmt.Fprintln(w)
		for _, p := range problems {
			fmt.Fprintf(w, "warning: %v\n", p)
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/messaging"
	"prbuild-agent/src/navigation"
	"prbuild-agent/src/pipeline"
)

// serveCmd runs the request and navigation agents
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the messaging and navigation agents",
	Long: `Run the agents that hold the TeamCity credentials:

- the request agent answers GET_BUILD, RUN_BUILD and RELOAD_CONFIG on
  prbuild.requests
- the navigation agent renders a panel for every PullOpened event on
  prbuild.navigation and publishes it on prbuild.panels

Settings come from the store (Postgres in Distributed Mode). An empty store
is seeded from the loaded configuration. Logs are JSON lines on stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		log := logger.NewJSONLogger(os.Stderr, debug)

		if err := serve(ctx, log); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent error: %w", err)
		}
		log.Info("Agents stopped")
		return nil
	},
}

func serve(ctx context.Context, log logger.Logger) error {
	opts := runtimeOptions()
	rt, err := pipeline.NewRuntime(ctx, opts, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	log.Info("Starting prbuild agents in %s mode", rt.Mode)
	if rt.Mode == pipeline.DistributedMode {
		log.Info("Redpanda brokers: %v", opts.RedpandaBrokers)
	}

	cfg, err := loadSettings(ctx, rt, log)
	if err != nil {
		return err
	}
	if cfg == nil {
		log.Warn("No settings stored yet; requests fail until RELOAD_CONFIG after 'prbuild config import'")
	}

	svc := pipeline.NewService(cfg, teamcityFactory, log)
	handler := messaging.NewHandler(svc, teamcityFactory, rt.Store, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return messaging.NewAgent(rt.Broker, handler, log).Run(ctx)
	})
	g.Go(func() error {
		return navigation.NewAgent(rt.Broker, svc, log).Run(ctx)
	})
	return g.Wait()
}

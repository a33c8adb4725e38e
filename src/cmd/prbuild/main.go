// Package main provides the prbuild CLI: TeamCity build status for pull and
// merge requests, in the terminal, over a broker, or as MCP tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"prbuild-agent/src/config"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/teamcity"
)

var (
	// Application configuration, loaded before any command runs
	appConfig *config.Config

	configPath string
	debug      bool
	brokers    string
	postgres   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prbuild",
	Short: "prbuild - TeamCity build status for pull requests",
	Long: `prbuild shows the TeamCity builds configured for a repository next to
a pull or merge request, and queues new builds on request.

Configuration is read from --config, ./prbuild.{json,yaml} or
~/.config/prbuild/, with PRBUILD_* environment overrides.

Agents run in one of two modes:
- Local Mode: in-memory broker and settings (default)
- Distributed Mode: Redpanda for messages, Postgres for settings

Mode is auto-detected from --brokers (REDPANDA_BROKERS).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&brokers, "brokers", os.Getenv("REDPANDA_BROKERS"), "comma-separated Redpanda brokers")
	rootCmd.PersistentFlags().StringVar(&postgres, "postgres", os.Getenv("POSTGRES_DSN"), "Postgres DSN for stored settings")

	rootCmd.AddCommand(statusCmd, runCmd, watchCmd, openCmd, serveCmd, configCmd, mcpCmd)
}

func main() {
	os.Exit(exitCode(rootCmd.Execute(), os.Stderr))
}

// exitError carries a process exit code through cobra. A nil err means the
// command already reported the problem.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode reports err with its user hint and maps it to a process exit code.
// Commands return instead of exiting so their deferred cleanup runs.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", provider.WrapError(exitErr.err))
		}
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", provider.WrapError(err))
	return 1
}

// runtimeOptions returns the infrastructure selected by the flags.
func runtimeOptions() pipeline.Options {
	return pipeline.Options{
		RedpandaBrokers: parseBrokers(brokers),
		PostgresDSN:     postgres,
	}
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// teamcityFactory talks to TeamCity directly.
func teamcityFactory(cfg *config.Config) provider.Provider {
	return teamcity.NewProviderFromConfig(cfg)
}

// newLocalService renders panels in-process from the loaded configuration.
func newLocalService(log logger.Logger) *pipeline.Service {
	return pipeline.NewService(appConfig, teamcityFactory, log)
}

// loadSettings returns the stored settings, seeding an empty store from the
// loaded configuration when that configuration validates.
func loadSettings(ctx context.Context, rt *pipeline.Runtime, log logger.Logger) (*config.Config, error) {
	seed := appConfig
	if err := seed.Validate(); err != nil {
		log.Warn("Loaded configuration is not usable, relying on the store: %v", err)
		seed = nil
	}
	cfg, err := rt.LoadConfig(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

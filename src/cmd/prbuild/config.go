package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prbuild-agent/src/config"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/messaging"
	"prbuild-agent/src/pipeline"
)

var (
	showJSON     bool
	importNotify bool
)

// configCmd groups the settings commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and store settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the loaded configuration with credentials masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := appConfig.Redacted()

		var (
			data []byte
			err  error
		)
		if showJSON {
			data, err = config.Marshal(redacted)
		} else {
			data, err = config.MarshalYAML(redacted)
		}
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		if showJSON {
			fmt.Println()
		}

		if err := appConfig.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\nwarning: %v\n", err)
		}
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Validate a config file and write it to the settings store",
	Long: `Validate a JSON or YAML config file and write it to the settings store
(Postgres in Distributed Mode). With --notify, running agents are asked to
reload it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logger.NewConsoleLogger(debug)
		rt, err := pipeline.NewRuntime(ctx, runtimeOptions(), log)
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.Mode == pipeline.LocalMode {
			log.Warn("Local Mode keeps settings in memory; set --brokers and --postgres to persist them")
		}
		if err := rt.Store.Set(ctx, cfg); err != nil {
			return err
		}
		fmt.Printf("Stored settings for %d repositories\n", len(cfg.Repository))

		if !importNotify {
			return nil
		}
		client, err := messaging.NewClient(ctx, rt.Broker, log, messaging.WithTimeout(10*time.Second))
		if err != nil {
			return err
		}
		if err := client.ReloadConfig(ctx); err != nil {
			return err
		}
		fmt.Println("Agents reloaded their settings")
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON instead of YAML")
	configImportCmd.Flags().BoolVar(&importNotify, "notify", false, "send RELOAD_CONFIG to running agents")
	configCmd.AddCommand(configShowCmd, configImportCmd)
}

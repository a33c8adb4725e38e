// Package main provides the MCP server entry point for prbuild.
// This server implements the Model Context Protocol, exposing the build
// panel through the render_panel, get_build_row, get_build, run_build and
// reload_config tools.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"prbuild-agent/src/config"
	"prbuild-agent/src/logger"
	"prbuild-agent/src/mcp"
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/teamcity"
)

func main() {
	configPath := flag.String("config", "", "config file (JSON or YAML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// stdout carries the protocol
	silent := logger.NewSilentLogger()
	ctx := context.Background()

	opts := pipeline.Options{PostgresDSN: os.Getenv("POSTGRES_DSN")}
	for _, b := range strings.Split(os.Getenv("REDPANDA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			opts.RedpandaBrokers = append(opts.RedpandaBrokers, b)
		}
	}

	rt, err := pipeline.NewRuntime(ctx, opts, silent)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	if cfg.Validate() != nil {
		cfg = nil
	}
	stored, err := rt.LoadConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", provider.WrapError(err))
	}

	factory := func(c *config.Config) provider.Provider {
		return teamcity.NewProviderFromConfig(c)
	}
	server := mcp.NewServer(pipeline.NewService(stored, factory, silent), factory, rt.Store, silent)

	// Run server over stdin/stdout (stdio transport)
	if err := server.Run(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/mcp"
	"prbuild-agent/src/pipeline"
)

// mcpCmd serves the MCP tools on stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the build panel as MCP tools on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		// stdout carries the protocol
		log := logger.NewSilentLogger()

		rt, err := pipeline.NewRuntime(ctx, runtimeOptions(), log)
		if err != nil {
			return err
		}
		defer rt.Close()

		cfg, err := loadSettings(ctx, rt, log)
		if err != nil {
			return err
		}

		svc := pipeline.NewService(cfg, teamcityFactory, log)
		server := mcp.NewServer(svc, teamcityFactory, rt.Store, log)
		if err := server.Run(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}

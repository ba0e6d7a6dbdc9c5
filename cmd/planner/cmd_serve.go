package main

import (
	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/planner/mcp"
)

// serveCmd runs the MCP server over stdio
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		server := mcp.NewServer(a.engine, a.configs, log)
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

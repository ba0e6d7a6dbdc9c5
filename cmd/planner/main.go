// Command planner is the production planning server and CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/config"
	"github.com/rsned/production-planner/internal/logger"
)

var (
	// Global flags
	dbPath    string
	worldPath string
	verbose   bool

	cfg *config.Config
	log *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Production planner - LP optimizer for factory production lines",
	Long: `planner computes the cheapest set of recipe scales that meets target
output rates within raw resource extraction limits.

It serves the optimizer over MCP (stdio) or HTTP, imports catalog dumps,
and runs one-off optimizations from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}
		if cmd.Flags().Changed("world") {
			cfg.WorldConfigPath = worldPath
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		// stdout carries MCP frames and command output; logs go to stderr.
		log = logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from PLANNER_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&worldPath, "world", "", "World config YAML (default from PLANNER_WORLD_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(httpCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(optimizeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

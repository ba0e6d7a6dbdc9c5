package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/planner/server"
)

var httpAddr string

// httpCmd runs the HTTP API
var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr = httpAddr
		}

		srv := server.NewServer(addr, server.Deps{
			Engine: a.engine,
			Users:  a.configs,
			DB:     a.db,
			Logger: log,
		})

		errCh := make(chan error, 1)
		go func() {
			log.Info("HTTP server listening", "addr", addr)
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "Listen address (default from PLANNER_HTTP_ADDR)")
}

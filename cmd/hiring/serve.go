package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/hiring-engine/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for jobs, candidates, interview rounds, stackranking and offers.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT and the config file)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	engine, cfg, closeStore, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}

	port := cfg.Port
	if servePort > 0 {
		port = servePort
	}

	srv, err := server.New(server.Config{
		Port:       port,
		Engine:     engine,
		OnShutdown: []func(){closeStore},
	})
	if err != nil {
		closeStore()
		return fmt.Errorf("failed to create server: %w", err)
	}

	slog.Info("hiring engine configured", "store", cfg.Store, "port", port, "roster", cfg.RosterFile != "")
	return srv.Start()
}

package main

import (
	"context"
	"fmt"

	"github.com/artpar/stacgate/bootstrap"
	"github.com/artpar/stacgate/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog server",
	Long: `Start the stacgate server.

Configuration is read from stacgate.yaml (or --config). Without a file the
server is configured from STACGATE_* and POSTGRES_* environment variables.

Examples:
  stacgate serve
  stacgate serve --config /etc/stacgate/config.yaml
  STACGATE_DATABASE_DRIVER=memory stacgate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}

package main

import (
	"fmt"

	"github.com/artpar/stacgate/adapters/sqlite"
	"github.com/artpar/stacgate/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQLite schema",
	Long: `Create or upgrade the SQLite catalog schema at database.path.

The pgstac backend manages its own schema and is not migrated here.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		return fmt.Errorf("migrate only applies to the sqlite driver, configured driver is %q", cfg.Database.Driver)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date at %s\n", checkMark, cfg.Database.Path)
	return nil
}

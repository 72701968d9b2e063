package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stacgate",
	Short: "STAC API server with the transaction extension",
	Long: `stacgate serves a SpatioTemporal Asset Catalog over HTTP.

The base API (landing page, conformance, collections and items) is always
enabled. Extensions listed under api.extensions add routes on top of it.

Quick start:
  stacgate serve     # Start the server
  stacgate validate  # Check configuration and route composition
  stacgate ingest    # Load a collection and its items`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "stacgate.yaml", "config file path")
}

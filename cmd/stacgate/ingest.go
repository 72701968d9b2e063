package main

import (
	"fmt"

	"github.com/artpar/stacgate/app"
	"github.com/artpar/stacgate/bootstrap"
	"github.com/artpar/stacgate/config"
	"github.com/spf13/cobra"
)

var (
	ingestURL        string
	ingestCollection string
	ingestItems      string
	ingestWorkers    int
	ingestStrip      []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a collection and its items into a running catalog",
	Long: `Post a collection document, then every feature of a GeoJSON feature
collection as an item of it. Sources are local paths or http(s) URLs.

An existing collection is kept and existing items are skipped. Features
without an id are given a random UUID.

Examples:
  stacgate ingest --collection joplin/collection.json --items joplin/index.geojson
  stacgate ingest --url http://localhost:8080 \
    --collection https://example.com/joplin/collection.json \
    --items https://example.com/joplin/index.geojson`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "catalog base url (default: server.base_url)")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "collection document")
	ingestCmd.Flags().StringVar(&ingestItems, "items", "", "GeoJSON feature collection of items")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 4, "concurrent item uploads")
	ingestCmd.Flags().StringSliceVar(&ingestStrip, "strip", []string{"stac_extensions"}, "members removed from every feature")
	ingestCmd.MarkFlagRequired("collection")
	ingestCmd.MarkFlagRequired("items")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if ingestURL == "" {
		ingestURL = cfg.Server.BaseURL
	}

	svc, err := app.NewIngestService(app.IngestOptions{
		BaseURL:      ingestURL,
		Workers:      ingestWorkers,
		StripMembers: ingestStrip,
		Logger:       bootstrap.NewLogger(cfg),
	})
	if err != nil {
		return err
	}

	collection, err := app.ReadSource(ctx, nil, ingestCollection)
	if err != nil {
		return fmt.Errorf("read collection: %w", err)
	}
	items, err := app.ReadSource(ctx, nil, ingestItems)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}

	res, err := svc.Run(ctx, collection, items)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created, %d existing, %d failed\n",
		res.Collection, res.Created, res.Existing, res.Failed)
	return err
}

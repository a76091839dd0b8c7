package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sumai_assistant/internal/app"
	"sumai_assistant/internal/lib/metrics"
	"sumai_assistant/internal/repository"
)

//go:embed sample_listings.json
var sampleListings []byte

var (
	seedFile  string
	seedReset bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the listings table and load listings",
	Long: `Creates the listings table and loads listings from a JSON file.
Without --file the built-in sample set is loaded.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON array of listings rows")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "drop the listings table first")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rows, err := readListings(seedFile)
	if err != nil {
		return err
	}

	store, err := app.OpenListingStore(ctx, cfg.Storage, log, metrics.GetCallMetrics(log))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx, seedReset); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	inserted, err := store.InsertListings(ctx, rows)
	if err != nil {
		return fmt.Errorf("insert listings: %w", err)
	}

	log.Info("listings loaded",
		slog.String("driver", cfg.Storage.Driver),
		slog.Int("inserted", inserted),
		slog.Bool("reset", seedReset),
	)
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %d listings loaded\n", inserted)
	return nil
}

func readListings(path string) ([]repository.ListingRow, error) {
	data := sampleListings
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read listings: %w", err)
		}
	}

	var rows []repository.ListingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return rows, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/postgres"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample products into an empty catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := postgres.Connect(cmd.Context(), cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		n, err := catalog.NewService(postgres.NewProductRepository(pool)).SeedSamples(cmd.Context())
		if err != nil {
			return err
		}
		if n == 0 {
			logger.Info().Msg("Catalog already has products, nothing seeded")
			return nil
		}
		logger.Info().Int("count", n).Msg("Seeded sample products")
		return nil
	},
}

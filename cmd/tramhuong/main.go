package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dukerupert/tramhuong/internal"
)

var (
	cfg    *internal.Config
	logger zerolog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tramhuong",
	Short: "Khang Trầm Hương storefront API",
	Long: `Runs and operates the Khang Trầm Hương storefront backend.

Available commands:
  serve    - Start the HTTP API
  migrate  - Apply or inspect database migrations
  seed     - Insert the sample products into an empty catalog
  cart     - Work with a session cart through a running API
  order    - Place or look up orders through a running API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := internal.NewConfig()
		if err != nil {
			return err
		}
		cfg = c
		logger = internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(orderCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

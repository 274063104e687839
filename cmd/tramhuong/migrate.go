package main

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/dukerupert/tramhuong/internal"
	"github.com/dukerupert/tramhuong/internal/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQL(cmd, internal.RunMigrations)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied state of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQL(cmd, internal.MigrationStatus)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

// withSQL opens a database/sql handle over a pgx pool for goose.
func withSQL(cmd *cobra.Command, fn func(db *sql.DB) error) error {
	pool, err := postgres.Connect(cmd.Context(), cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := fn(db); err != nil {
		return err
	}
	logger.Info().Str("command", cmd.Name()).Msg("Migrations done")
	return nil
}

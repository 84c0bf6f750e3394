package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/chrscato/BillReview-system/internal/exitcode"
	"github.com/chrscato/BillReview-system/internal/logging"
	"github.com/chrscato/BillReview-system/internal/refdata"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply reference schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, debug)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or BILLREVIEW_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := refdata.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := refdata.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.RunError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}

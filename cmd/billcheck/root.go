package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chrscato/BillReview-system/internal/config"
)

var (
	cfg   config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "billcheck",
	Short: "Medical bill review and claim adjudication",
	Long:  "Validates normalized claim documents against reference orders, procedure catalogs, and contracted-rate tables, producing one auditable verdict per claim.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("BILLREVIEW_DB_URL"), "Postgres connection string (or set BILLREVIEW_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.BoolVar(&debug, "debug", false, "Enable per-claim stage tracing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

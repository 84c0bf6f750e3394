package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chrscato/BillReview-system/internal/auditlog"
	"github.com/chrscato/BillReview-system/internal/claimfile"
	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/exitcode"
	"github.com/chrscato/BillReview-system/internal/logging"
	"github.com/chrscato/BillReview-system/internal/model"
	"github.com/chrscato/BillReview-system/internal/refdata"
	"github.com/chrscato/BillReview-system/internal/review"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the adjudication pipeline over a directory of claim files",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&cfg.ClaimsDir, "claims", "", "Directory of normalized claim JSON files (required)")
	f.StringVar(&cfg.RulesPath, "rules", "", "YAML rule file merged over the built-in rules")
	f.StringVar(&cfg.LogDir, "log-dir", "validation_logs", "Directory for session audit logs")
	f.IntVar(&cfg.Workers, "workers", 4, "Number of concurrent claim workers")
	_ = validateCmd.MarkFlagRequired("claims")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, debug)
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	rules := config.DefaultRules()
	if cfg.RulesPath != "" {
		var err error
		rules, err = config.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Error().Err(err).Msg("rule file invalid")
			os.Exit(exitcode.RulesError)
		}
	}

	pool, err := refdata.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()
	store := refdata.NewPGStore(pool)

	// Catalogs are loaded once and shared immutably across workers.
	categories, err := store.ProcedureCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading procedure categories failed")
		os.Exit(exitcode.RunError)
	}

	files, err := filepath.Glob(filepath.Join(cfg.ClaimsDir, "*.json"))
	if err != nil {
		log.Error().Err(err).Msg("scanning claims directory failed")
		os.Exit(exitcode.RunError)
	}
	log.Info().Int("files", len(files)).Str("dir", cfg.ClaimsDir).Msg("starting validation session")

	pipeline := review.New(rules, categories, store, log)
	logger := auditlog.New(cfg.LogDir)

	failed := processFiles(ctx, log, pipeline, logger, files, cfg.Workers)

	summaryPath, err := logger.Save()
	if err != nil {
		log.Error().Err(err).Msg("writing audit logs failed")
		os.Exit(exitcode.LogWriteError)
	}

	fmt.Printf("Validation complete: %d file(s) processed, %d failed. Results saved to %s\n", len(files), failed, summaryPath)
	if failed > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

// processFiles fans claim files out to workers and reports how many claims
// failed. Claims are independent, so only the per-file verdict recording
// needs coordination.
func processFiles(ctx context.Context, log zerolog.Logger, pipeline *review.Pipeline, logger *auditlog.Logger, files []string, workers int) int {
	work := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				verdict := processFile(ctx, log, pipeline, path)
				logger.Record(verdict)
				if verdict.Status == model.StatusFail {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	for _, path := range files {
		work <- path
	}
	close(work)
	wg.Wait()
	return failed
}

// processFile produces exactly one verdict per file: a parse failure
// yields a process_error verdict rather than aborting the batch.
func processFile(ctx context.Context, log zerolog.Logger, pipeline *review.Pipeline, path string) *model.Verdict {
	claim, err := claimfile.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("claim file unreadable")
		return claimfile.ErrorVerdict(path, err)
	}

	verdict := pipeline.Review(ctx, claim)
	log.Debug().
		Str("file", filepath.Base(path)).
		Str("order_id", claim.OrderID).
		Strs("cpts", claim.CPTCodes()).
		Str("status", string(verdict.Status)).
		Str("stage", string(verdict.ValidationType)).
		Msg("claim processed")
	return verdict
}

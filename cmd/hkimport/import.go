// ABOUTME: CLI command that runs the streaming import.
// ABOUTME: Wires config, store, logger, and progress output together.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harperreed/hkimport/internal/config"
	"github.com/harperreed/hkimport/internal/importer"
	"github.com/harperreed/hkimport/internal/storage"
)

var (
	importCutoffDays int
	importBatchSize  int
	importTxSize     int
	importTimezone   string
	importVerbose    bool
)

var importCmd = &cobra.Command{
	Use:     "import <export.xml>",
	Aliases: []string{"i"},
	Short:   "Import an Apple Health export file",
	Long: `Import an Apple Health export.xml into the local database.

The file is streamed; it is never loaded into memory as a whole.
Re-importing the same file is safe: previously imported entities are
recognized and skipped.

Examples:
  hkimport import export.xml
  hkimport import export.xml --cutoff-days 365
  hkimport import export.xml --db /tmp/health.db --verbose

Press Ctrl-C to stop between entities; everything committed so far
stays in the database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if importCutoffDays > 0 {
			cfg.CutoffDays = importCutoffDays
		}
		if importBatchSize > 0 {
			cfg.BatchSize = importBatchSize
		}
		if importTxSize > 0 {
			cfg.TransactionSize = importTxSize
		}
		if importTimezone != "" {
			cfg.Timezone = importTimezone
		}

		loc, err := cfg.GetTimezone()
		if err != nil {
			return err
		}

		dbPath := dbPathFlag
		if dbPath == "" {
			dbPath = cfg.GetDBPath()
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		logger, err := newLogger(importVerbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		parser := importer.New(db, importer.Config{
			Cutoff:          cfg.GetCutoff(),
			BatchSize:       cfg.BatchSize,
			TransactionSize: cfg.TransactionSize,
			Location:        loc,
			Progress:        printProgress,
		}, logger)

		stats, err := parser.ParseFile(ctx, args[0])
		fmt.Println()
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Import complete")
		fmt.Printf("  Records:              %d\n", stats.Records)
		fmt.Printf("  Correlations:         %d (%d links)\n", stats.Correlations, stats.CorrelationRecords)
		fmt.Printf("  Workouts:             %d\n", stats.Workouts)
		fmt.Printf("  Activity summaries:   %d\n", stats.ActivitySummaries)
		fmt.Printf("  Clinical records:     %d\n", stats.ClinicalRecords)
		fmt.Printf("  Audiograms:           %d\n", stats.Audiograms)
		fmt.Printf("  Vision prescriptions: %d\n", stats.VisionPrescriptions)
		fmt.Printf("  Metadata entries:     %d\n", stats.MetadataEntries)
		fmt.Printf("  HRV series:           %d\n", stats.HRVSeries)
		fmt.Printf("  Duplicates skipped:   %d\n", stats.Duplicates)
		fmt.Printf("  Filtered (old):       %d\n", stats.FilteredOld)
		if stats.Errors > 0 {
			color.Yellow("  Errors (skipped):     %d", stats.Errors)
		}
		return nil
	},
}

// printProgress rewrites a single status line as counters move.
func printProgress(s importer.Stats) {
	fmt.Printf("\rRecords: %d | Duplicates: %d | Filtered: %d | Errors: %d",
		s.Records, s.Duplicates, s.FilteredOld, s.Errors)
}

// newLogger builds a console zap logger; quiet unless --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func init() {
	importCmd.Flags().IntVar(&importCutoffDays, "cutoff-days", 0, "only import entities newer than this many days (default 180)")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 0, "leaf insert batch size (default 5000)")
	importCmd.Flags().IntVar(&importTxSize, "tx-size", 0, "entities per transaction commit (default 100)")
	importCmd.Flags().StringVar(&importTimezone, "timezone", "", "reference timezone (default Europe/Zurich)")
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "log per-element warnings and progress")

	rootCmd.AddCommand(importCmd)
}

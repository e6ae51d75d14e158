// ABOUTME: Root Cobra command for hkimport CLI.
// ABOUTME: Holds the global --db flag shared by all subcommands.
package main

import (
	"github.com/spf13/cobra"
)

var dbPathFlag string

var rootCmd = &cobra.Command{
	Use:   "hkimport",
	Short: "Import Apple Health exports into SQLite",
	Long: `hkimport streams an Apple Health export.xml into a normalized
SQLite database, one table per entity kind.

Imports are idempotent: re-running the same export never duplicates
rows, so you can import a growing export file again and again and only
pay for the new records. Memory use stays bounded no matter how large
the export is (multi-gigabyte files are expected).

QUICK START:

  $ hkimport import ~/Downloads/apple_health_export/export.xml
  $ hkimport stats

WHAT GETS IMPORTED:

  Records        every timestamped measurement (heart rate, steps, ...)
  Correlations   grouped readings such as blood pressure pairs
  Workouts       sessions with events, statistics, and GPS routes
  Summaries      daily activity ring totals
  Clinical       FHIR clinical document references
  Audiograms     hearing tests with per-frequency points
  Vision         prescriptions with per-eye parameters
  Metadata       key/value notes attached to their parent entity
  HRV            heart-rate-variability beat samples

FILTERING:

  Only entities newer than the cutoff (default 180 days) are kept.
  Tune with --cutoff-days or cutoff_days in the config file.

DATA STORAGE:

  The database lives at ~/.local/share/hkimport/health.db by default.
  Point any SQLite client at it for ad-hoc queries.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database path (default: XDG data dir)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

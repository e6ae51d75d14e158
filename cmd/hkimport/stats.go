// ABOUTME: CLI command showing row counts and recent import sessions.
// ABOUTME: Read-only; safe to run while no import is in progress.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/hkimport/internal/config"
	"github.com/harperreed/hkimport/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"st"},
	Short:   "Show database contents and recent imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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

		counts, err := db.EntityCounts()
		if err != nil {
			return err
		}

		color.Cyan("Database: %s", db.Path())
		fmt.Println()
		var total int64
		for _, table := range storage.EntityTables {
			n := counts[table]
			total += n
			if n > 0 {
				fmt.Printf("  %-22s %d\n", table, n)
			}
		}
		if total == 0 {
			fmt.Println("  (empty: run 'hkimport import' first)")
			return nil
		}

		sessions, err := db.ListSessions(5)
		if err != nil {
			return err
		}
		if len(sessions) > 0 {
			fmt.Println()
			color.Cyan("Recent imports:")
			for _, s := range sessions {
				status := "running"
				if s.FinishedAt != nil {
					status = s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()
				}
				fmt.Printf("  %s  %s  imported=%d dup=%d filtered=%d errors=%d  (%s)\n",
					color.New(color.Faint).Sprint(s.ID.String()[:8]),
					s.StartedAt.Format("2006-01-02 15:04"),
					s.Imported, s.Duplicates, s.Filtered, s.Errors, status)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

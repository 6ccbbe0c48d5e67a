package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vsood/schoolmail/internal/config"
	"github.com/vsood/schoolmail/internal/database"
	"github.com/vsood/schoolmail/internal/dedup"
	"github.com/vsood/schoolmail/internal/ingest"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Offline maintenance passes over stored data",
}

var maintainDedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Backfill URL fingerprints and fold duplicate current items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMaintenance(cmd.Context(), func(ctx context.Context, m *ingest.Maintenance) error {
			return m.DedupCurrent(ctx)
		})
	},
}

var maintainBackfillDatesCmd = &cobra.Command{
	Use:   "backfill-dates",
	Short: "Populate missing item end dates from date ranges in content",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMaintenance(cmd.Context(), func(ctx context.Context, m *ingest.Maintenance) error {
			return m.BackfillDateEnds(ctx)
		})
	},
}

var maintainFixDatesCmd = &cobra.Command{
	Use:   "fix-dates",
	Short: "Re-derive email dates from forwarded message headers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMaintenance(cmd.Context(), func(ctx context.Context, m *ingest.Maintenance) error {
			return m.FixEmailDates(ctx)
		})
	},
}

func init() {
	maintainCmd.AddCommand(maintainDedupCmd)
	maintainCmd.AddCommand(maintainBackfillDatesCmd)
	maintainCmd.AddCommand(maintainFixDatesCmd)
}

func runMaintenance(ctx context.Context, fn func(context.Context, *ingest.Maintenance) error) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	m := newMaintenance(cfg, db, logger)
	return fn(ctx, m)
}

func newMaintenance(cfg *config.Config, db *database.DB, logger *slog.Logger) *ingest.Maintenance {
	return ingest.NewMaintenance(
		db,
		dedup.NewURLExtractor(cfg.URLDenylist),
		cfg.SimilarityThreshold,
		logger,
	)
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/boundary"
	"github.com/fooddata/fhrs-reconcile/internal/reconcile"
	"github.com/fooddata/fhrs-reconcile/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Capture per-district statistics for the time series",
	Long: `Runs a reconciliation pass, rolls the states up per district and appends
one capture to the local statistics database. Intended to run daily from
cron so progress can be charted over time.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		statsStore, err := openStats(ctx)
		if err != nil {
			return err
		}
		defer statsStore.Close()

		snap, err := loadSnapshot(ctx, st)
		if err != nil {
			return err
		}
		result, err := reconcile.Run(ctx, snap)
		if err != nil {
			return err
		}

		districts, err := st.LoadDistricts(ctx)
		if err != nil {
			return err
		}
		set := boundary.NewSet(districts)
		aggregated := stats.Aggregate(result, set.Assign(snap.Objects, snap.Establishments))

		capturedAt := time.Now().UTC()
		if err := statsStore.Record(ctx, capturedAt, aggregated); err != nil {
			return err
		}

		fmt.Printf("captured %d districts at %s\n",
			len(aggregated), capturedAt.Format(time.RFC3339))
		zap.L().Info("stats capture complete",
			zap.Int("districts", len(aggregated)),
			zap.Time("captured_at", capturedAt),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

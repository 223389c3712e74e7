package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a reconciliation pass and print state totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := loadSnapshot(ctx, st)
		if err != nil {
			return err
		}
		result, err := reconcile.Run(ctx, snap)
		if err != nil {
			return err
		}

		osm, fhrs := result.StateCounts()
		fmt.Printf("OSM objects: %d\n", len(snap.Objects))
		for _, state := range model.OSMStates {
			fmt.Printf("  %-28s %d\n", state, osm[state])
		}
		fmt.Printf("FHRS establishments: %d\n", len(snap.Establishments))
		for _, state := range model.FHRSStates {
			fmt.Printf("  %-28s %d\n", state, fhrs[state])
		}
		fmt.Printf("links: %d\n", len(result.Links))

		zap.L().Info("reconcile command complete",
			zap.Int("objects", len(snap.Objects)),
			zap.Int("establishments", len(snap.Establishments)),
			zap.Int("links", len(result.Links)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

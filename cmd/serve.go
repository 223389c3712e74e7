package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/address"
	"github.com/fooddata/fhrs-reconcile/internal/api"
	"github.com/fooddata/fhrs-reconcile/internal/boundary"
	"github.com/fooddata/fhrs-reconcile/internal/reconcile"
	"github.com/fooddata/fhrs-reconcile/internal/stats"
	"github.com/fooddata/fhrs-reconcile/internal/suggest"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation API",
	Long: `Loads both datasets, runs a reconciliation pass and serves the results:
bounding-box queries over both datasets, match suggestions, per-district
statistics and the distant match review layer.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
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

		log := zap.L().With(zap.String("command", "serve"))

		snap, err := loadSnapshot(ctx, st)
		if err != nil {
			return err
		}
		result, err := reconcile.Run(ctx, snap)
		if err != nil {
			return err
		}

		idx, err := st.LoadGazetteer(ctx)
		if err != nil {
			return err
		}
		var gaz address.Gazetteer
		if idx.Len() > 0 {
			gaz = idx
		} else {
			log.Info("gazetteer is empty, address parsing falls back to heuristics; run import-names")
		}

		districts, err := st.LoadDistricts(ctx)
		if err != nil {
			return err
		}
		set := boundary.NewSet(districts)
		aggregated := stats.Aggregate(result, set.Assign(snap.Objects, snap.Establishments))

		names := make(map[string]string, len(districts))
		for _, d := range districts {
			names[d.Code] = d.Name
		}

		svc := api.NewService(api.Options{
			Parser: address.NewParser(gaz),
			Suggest: suggest.Options{
				RadiusMeters: cfg.Suggest.RadiusMeters,
				Limit:        cfg.Suggest.Limit,
			},
			DistantMeters:  cfg.Reconcile.DistantMeters,
			MaxBBoxDegrees: cfg.Server.MaxBBoxDegrees,
			History:        statsStore,
			DistrictNames:  names,
		})
		svc.Refresh(snap, result, aggregated)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: svc.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		log.Info("starting server",
			zap.Int("port", port),
			zap.Int("objects", len(snap.Objects)),
			zap.Int("establishments", len(snap.Establishments)),
			zap.Int("districts", len(districts)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

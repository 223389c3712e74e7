package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/boundary"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries [file.shp]",
	Short: "Load district boundaries from a shapefile",
	Long: `Reads local authority district outlines from a WGS84 shapefile (for
example the ONS generalised boundary download) and replaces the stored
boundary set used for per-district statistics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path := cfg.Boundary.ShapefilePath
		if len(args) == 1 {
			cfg.Boundary.ShapefilePath = args[0]
			path = args[0]
		}
		if err := cfg.Validate("boundaries"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		districts, err := boundary.LoadShapefile(path, cfg.Boundary.FieldPrefix)
		if err != nil {
			return err
		}
		if err := st.ReplaceDistricts(ctx, districts); err != nil {
			return eris.Wrap(err, "boundaries: store")
		}

		zap.L().Info("boundaries loaded",
			zap.String("file", path),
			zap.String("field_prefix", cfg.Boundary.FieldPrefix),
			zap.Int("districts", len(districts)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(boundariesCmd)
}

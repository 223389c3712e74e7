package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/osmimport"
)

var importOSMCmd = &cobra.Command{
	Use:   "import-osm [file.osm.pbf]",
	Short: "Import food places from an OSM PBF extract",
	Long: `Scans a PBF extract for objects tagged with fhrs:id or a food-related
amenity/shop tag, computes centroids for ways and relations, and replaces
the stored object set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path := cfg.OSM.PBFPath
		if len(args) == 1 {
			cfg.OSM.PBFPath = args[0]
			path = args[0]
		}
		if err := cfg.Validate("import-osm"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		log := zap.L().With(zap.String("command", "import-osm"))

		importer := osmimport.NewImporter(path, osmimport.Options{
			Workers: cfg.OSM.Workers,
		})
		objects, err := importer.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "import-osm: scan")
		}

		if err := st.ReplaceObjects(ctx, objects); err != nil {
			return eris.Wrap(err, "import-osm: store")
		}

		log.Info("OSM import complete",
			zap.String("file", path),
			zap.Int("objects", len(objects)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importOSMCmd)
}

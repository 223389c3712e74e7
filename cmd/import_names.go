package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/gazetteer"
)

var importNamesCmd = &cobra.Command{
	Use:   "import-names [dir]",
	Short: "Import the OS Open Names gazetteer",
	Long: `Reads an extracted OS Open Names distribution, keeps the populated
places and named roads, and replaces the stored gazetteer the address
parser uses for place and road recognition.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir := cfg.Gazetteer.Dir
		if len(args) == 1 {
			cfg.Gazetteer.Dir = args[0]
			dir = args[0]
		}
		if err := cfg.Validate("import-names"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		places, roads, err := gazetteer.ReadProduct(dir)
		if err != nil {
			return err
		}
		if err := st.ReplaceGazetteer(ctx, places, roads); err != nil {
			return eris.Wrap(err, "import-names: store")
		}

		zap.L().Info("gazetteer imported",
			zap.String("dir", dir),
			zap.Int("places", len(places)),
			zap.Int("roads", len(roads)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importNamesCmd)
}

package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/fetch"
)

var updateFHRSCmd = &cobra.Command{
	Use:   "update-fhrs",
	Short: "Fetch FHRS authorities and establishments",
	Long: `Downloads the authority list and re-fetches establishments for every
authority whose register publication is newer than the stored copy. Each
authority is committed separately, so an interrupted run resumes where it
left off.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("update-fhrs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		log := zap.L().With(zap.String("command", "update-fhrs"))
		client := fhrsClient()

		authorities, err := client.Authorities(ctx)
		if err != nil {
			return eris.Wrap(err, "update-fhrs: fetch authorities")
		}
		log.Info("authority list fetched", zap.Int("authorities", len(authorities)))

		stored, err := st.AuthorityPublishDates(ctx)
		if err != nil {
			return err
		}

		needed := authorities
		if all, _ := cmd.Flags().GetBool("all"); !all {
			needed = fetch.RequiringFetch(authorities, stored)
		}
		log.Info("authorities requiring fetch", zap.Int("count", len(needed)))

		var fetched, skipped int
		for _, authority := range needed {
			ests, err := client.Establishments(ctx, authority)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("authority fetch failed, continuing",
					zap.Int("code", authority.Code),
					zap.String("name", authority.Name),
					zap.Error(err),
				)
				skipped++
				continue
			}
			if err := st.ReplaceAuthorityEstablishments(ctx, authority, ests); err != nil {
				return err
			}
			fetched++
			log.Debug("authority updated",
				zap.Int("code", authority.Code),
				zap.Int("establishments", len(ests)),
			)
		}

		removed, err := st.DeleteObsoleteAuthorities(ctx, authorities)
		if err != nil {
			return err
		}

		log.Info("FHRS update complete",
			zap.Int("fetched", fetched),
			zap.Int("skipped", skipped),
			zap.Int("unchanged", len(authorities)-len(needed)),
			zap.Int64("removed_authorities", removed),
		)
		if skipped > 0 {
			return eris.Errorf("update-fhrs: %d authorities failed to fetch", skipped)
		}
		return nil
	},
}

func init() {
	updateFHRSCmd.Flags().Bool("all", false, "re-fetch every authority regardless of publish date")
	rootCmd.AddCommand(updateFHRSCmd)
}

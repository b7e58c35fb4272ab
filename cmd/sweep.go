package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepOlderThan time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete abandoned registrations and unverified users whose verification expired",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sweepOlderThan < 0 {
			return fmt.Errorf("--older-than must not be negative")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, dialect, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		userAuthService, err := newUserAuthService(cfg, db, dialect)
		if err != nil {
			return err
		}

		cutoff := time.Now().Add(-sweepOlderThan)
		count, err := userAuthService.SweepStale(cmd.Context(), cutoff)
		if err != nil {
			return err
		}

		fmt.Printf("removed %d stale user(s) (verification expired before %s)\n", count, cutoff.Format(time.RFC3339))
		return nil
	},
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 0, "only remove users whose verification expired at least this long ago")
	rootCmd.AddCommand(sweepCmd)
}

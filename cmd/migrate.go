package cmd

import (
	"fmt"

	"github.com/vibast-solutions/ms-go-userauth/app/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|status>",
	Short:     "Apply, roll back or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{repository.MigrateUp, repository.MigrateDown, repository.MigrateStatus},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, dialect, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err = repository.Migrate(cmd.Context(), db, dialect, args[0]); err != nil {
			return err
		}

		fmt.Printf("migrate %s: done (%s)\n", args[0], dialect)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

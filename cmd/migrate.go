package main

import (
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/tour-registration/internal/database"
)

func newMigrateCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(configPath())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := requirePostgres(cfg, "migrate"); err != nil {
				return err
			}
			return database.Migrate(database.MigrateURL(cfg.Database), log)
		},
	}
}

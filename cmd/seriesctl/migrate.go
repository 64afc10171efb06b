package main

import (
	"errors"

	"github.com/spf13/cobra"

	"kitanda/internal/config"
	"kitanda/internal/infrastructure/storage/postgres"
	"kitanda/internal/infrastructure/storage/postgres/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Example: `  seriesctl migrate
  seriesctl migrate --status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.StoragePostgres {
				return errors.New("migrate requires storage.driver=postgres")
			}

			pool, err := postgres.NewPool(cmd.Context(), postgres.DefaultPoolConfig(cfg.Storage.DSN))
			if err != nil {
				return err
			}
			defer pool.Close()

			if !status {
				if err := migrations.UpFromPool(pool.Unwrap()); err != nil {
					return err
				}
			}
			v, dirty, err := migrations.VersionFromPool(pool.Unwrap())
			if err != nil {
				return err
			}
			a.printf("schema version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only print the applied version")
	return cmd
}

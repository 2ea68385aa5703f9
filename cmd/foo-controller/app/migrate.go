package app

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sunyakun/foo-controller/pkg/config"
	"github.com/sunyakun/foo-controller/pkg/manager"
	"github.com/sunyakun/foo-controller/pkg/storage/gorm"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the mysql backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config
			cfg.Backend = config.BackendMySQL
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			db, pubsub, err := manager.OpenMySQL(cfg.MySQL, logger)
			if err != nil {
				return err
			}
			defer pubsub.Close()

			store, err := gorm.NewFooStore(db, pubsub)
			if err != nil {
				return err
			}
			if err := store.Migrate(cmd.Context()); err != nil {
				return errors.Wrap(err, "migrate foos")
			}
			if cfg.MySQL.WatchTransport == config.TransportSQL {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				if err := watch.InitializeSQLSchema(sqlDB, cfg.MySQL.StreamName); err != nil {
					return err
				}
			}
			logger.Info("migrated", "stream", cfg.MySQL.StreamName, "transport", cfg.MySQL.WatchTransport)
			return nil
		},
	}
}

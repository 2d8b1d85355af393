package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		sh, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer sh.close()

		if sh.migrate == nil {
			log.Info("store driver has no schema, nothing to migrate")
			return nil
		}
		if err := sh.migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("schema applied")
		return nil
	},
}

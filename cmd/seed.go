package main

import (
	"errors"

	"github.com/Shivanand-hulikatti/club-events/internal/config"
	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load users, clubs, memberships and resources from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.Store.Driver == config.DriverMemory {
			return errors.New("seeding the memory store from a separate process has no effect; use serve --seed")
		}

		sh, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer sh.close()

		return seedFrom(cmd.Context(), sh.store, seedFile, log)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "fixtures.json", "fixtures file")
}

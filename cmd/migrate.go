package main

import (
	"github.com/latestcomment/go-live-activities/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return store.Migrate(db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := store.MigrateDown(db); err != nil {
			return err
		}
		log.Info("migrations rolled back", "db", cfg.DBPath)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateDownCmd)
}

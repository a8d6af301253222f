package main

import (
	"fmt"
	"os"

	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/internal/database"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCommand() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "parcels-api",
		Short:         "Railway parcel tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			logger.SetDefault(logger.New(os.Stdout, cfg.LogLevel))
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cfg, func(db *gorm.DB) error {
					if err := database.Migrate(db); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load demo stations, users, parcels and messages into an empty database",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cfg, func(db *gorm.DB) error {
					if err := database.Migrate(db); err != nil {
						return err
					}
					seeded, err := database.Seed(db)
					if err != nil {
						return err
					}
					if seeded {
						fmt.Fprintln(cmd.OutOrStdout(), "demo data loaded")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "stations already exist, nothing seeded")
					}
					return nil
				})
			},
		},
		newStationsCommand(func() *config.Config { return cfg }),
	)

	return rootCmd
}

func withDatabase(cfg *config.Config, fn func(db *gorm.DB) error) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(db)
}

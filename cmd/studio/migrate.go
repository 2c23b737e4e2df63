package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-studio/internal/config"
	"github.com/GyroZepelix/mithril-studio/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the snapshot database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL(a.cfg)
			if err != nil {
				return err
			}
			if steps < 1 {
				return errors.New("--steps must be at least 1")
			}
			if err := database.RollbackMigrations(url, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				url, err := databaseURL(a.cfg)
				if err != nil {
					return err
				}
				if err := database.RunMigrations(url); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				url, err := databaseURL(a.cfg)
				if err != nil {
					return err
				}
				status, err := database.CurrentMigration(url)
				if err != nil {
					return err
				}
				if status.Dirty {
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty)\n", status.Version)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", status.Version)
				return nil
			},
		},
	)
	return cmd
}

func databaseURL(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("%sDATABASE_URL is required", config.EnvPrefix)
	}
	return cfg.DatabaseURL, nil
}

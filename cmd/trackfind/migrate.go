package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cdc-trackfinder/internal/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the result database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(database *db.DB) error {
				if err := database.MigrateUp(db.MigrationsFS()); err != nil {
					return err
				}
				return printVersion(cmd, database)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back one migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(database *db.DB) error {
				if err := database.MigrateDown(db.MigrationsFS()); err != nil {
					return err
				}
				return printVersion(cmd, database)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version [N]",
		Short: "Show the schema version, or migrate to version N",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(database *db.DB) error {
				if len(args) == 1 {
					target, err := strconv.ParseUint(args[0], 10, 32)
					if err != nil {
						return fmt.Errorf("invalid version number %q: %w", args[0], err)
					}
					if err := database.MigrateTo(db.MigrationsFS(), uint(target)); err != nil {
						return err
					}
				}
				return printVersion(cmd, database)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force N",
		Short: "Force the schema version to N without migrating (recovery only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version number %q: %w", args[0], err)
			}
			return withDB(func(database *db.DB) error {
				if err := database.MigrateForce(db.MigrationsFS(), v); err != nil {
					return err
				}
				return printVersion(cmd, database)
			})
		},
	})

	return cmd
}

func withDB(fn func(*db.DB) error) error {
	if dbPath == "" {
		return fmt.Errorf("migrate needs a database path (--db)")
	}
	// The migrations manage the schema, so open without applying them.
	database, err := db.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}

func printVersion(cmd *cobra.Command, database *db.DB) error {
	version, dirty, err := database.MigrateVersion(db.MigrationsFS())
	if err != nil {
		return err
	}
	latest, err := db.LatestMigrationVersion(db.MigrationsFS())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d of %d (dirty: %v)\n", version, latest, dirty)
	return nil
}

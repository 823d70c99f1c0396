package cmd

import (
	"errors"
	"fmt"
	"log"

	"golang-autotrade/config"
	"golang-autotrade/pkg/postgres"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

const migrationsPath = "file://migrations"

var downSteps int

func newMigrate() (*migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.PositionStore.Driver != config.StoreDriverPostgres {
		log.Printf("position_store.driver is %q; migrating %s anyway\n", cfg.PositionStore.Driver, cfg.DB.DBName)
	}
	m, err := migrate.New(migrationsPath, postgres.MigrationURL(cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func withMigrate(run func(m *migrate.Migrate) error) {
	m, err := newMigrate()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("Migration close: source=%v database=%v\n", srcErr, dbErr)
		}
	}()

	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		withMigrate(func(m *migrate.Migrate) error {
			if err := m.Up(); err != nil {
				return err
			}
			fmt.Println("Migrations applied.")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert migrations, one step by default",
	Run: func(cmd *cobra.Command, args []string) {
		withMigrate(func(m *migrate.Migrate) error {
			if err := m.Steps(-downSteps); err != nil {
				return err
			}
			fmt.Printf("Reverted %d migration(s).\n", downSteps)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Run: func(cmd *cobra.Command, args []string) {
		withMigrate(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Println("No migrations applied.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Version %d (dirty=%t)\n", version, dirty)
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the positions table schema",
}

func init() {
	downCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to revert")
	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
}

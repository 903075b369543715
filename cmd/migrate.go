package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/bootstrap"
)

// defaultMigrationsPath is the relative path to the migrations directory.
const defaultMigrationsPath = "file://migrations"

func newMigrateCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			dbURL := bootstrap.DatabaseConfig(cfg).MigrationURL()
			m, err := migrate.New(source, dbURL)
			if err != nil {
				return fmt.Errorf("failed to create migrate instance: %w", err)
			}
			defer func() { _, _ = m.Close() }()

			if err = runMigration(m, args[0], cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("migration %s failed: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", defaultMigrationsPath, "migrations source URL")
	return cmd
}

// runMigration executes the migration in the specified direction.
func runMigration(m *migrate.Migrate, direction string, out io.Writer) error {
	var err error

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("invalid direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(out, "No migrations to apply")
		return nil
	}

	return err
}

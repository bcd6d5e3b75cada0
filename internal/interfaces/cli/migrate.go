package cli

import (
	"github.com/spf13/cobra"

	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres"
)

// newMigrateCommand builds `bangun migrate {up|down|status}`.
func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(postgres.DSN(cfg.Database), cfg.Database.MigrationPath); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"result": "migrations applied"})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(postgres.DSN(cfg.Database), cfg.Database.MigrationPath, steps); err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{"rolled_back": steps})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(postgres.DSN(cfg.Database), cfg.Database.MigrationPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"version": version, "dirty": dirty})
		},
	})

	return cmd
}

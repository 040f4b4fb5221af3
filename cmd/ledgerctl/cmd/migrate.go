package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SscSPs/erp_ledger/internal/platform/config"
	database "github.com/SscSPs/erp_ledger/pkg/database"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply every pending migration, or roll back the last N with --down.

Example:
  ledgerctl migrate
  ledgerctl migrate --down 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		var res *database.MigrationResult
		if migrateDown > 0 {
			res, err = database.RollbackMigrations(cfg.DatabaseURL, cfg.MigrationsPath, migrateDown)
		} else {
			res, err = database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
		}
		if err != nil {
			return err
		}

		status := "up to date"
		if res.Applied {
			status = "migrated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d (dirty=%t)\n", status, res.Version, res.Dirty)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "number of migrations to roll back")
}

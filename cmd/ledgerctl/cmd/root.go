// Package cmd provides the ledgerctl administration commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/platform/bootstrap"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

var debug bool

// cliActor is the principal recorded in the audit trail for ledgerctl changes.
var cliActor = domain.Actor{
	ID:          "ledgerctl",
	Name:        "ledgerctl",
	Kind:        domain.ActorIntegration,
	Permissions: []string{authz.CapabilityBypassAll},
}

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Administer the ERP ledger",
	Long: `ledgerctl runs maintenance tasks against the ledger database: migrations,
seeding a chart of accounts, fiscal period lifecycle, exchange rates and reports.

It reads the same environment (PGSQL_URL, MIGRATIONS_PATH, ...) and optional
ledger.yaml as the API server.

Example:
  ledgerctl migrate
  ledgerctl seed --file seeds/chart_of_accounts.yaml
  ledgerctl period close 3f6c...`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(periodCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(trialBalanceCmd)
}

// withRuntime loads the configuration, wires the services and runs fn.
// The audit spool stays with the API server; ledgerctl writes audit entries directly.
func withRuntime(ctx context.Context, fn func(rt *bootstrap.Runtime) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	rt, err := bootstrap.Start(ctx, cfg, slog.Default(), bootstrap.Options{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

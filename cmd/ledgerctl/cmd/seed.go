package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/SscSPs/erp_ledger/internal/platform/bootstrap"
	"github.com/SscSPs/erp_ledger/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a chart of accounts, currency policies and fiscal periods",
	Long: `Create the records described by a seed file. Records that already exist
are skipped, so the command can be re-run after editing the file.

Example:
  ledgerctl seed --file seeds/chart_of_accounts.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := seed.Load(seedFile)
		if err != nil {
			return err
		}
		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			res, err := seed.Apply(cmd.Context(), f, seed.Targets{
				Accounts: rt.Services.Account,
				Currency: rt.Services.Currency,
				Periods:  rt.Services.FiscalPeriod,
			}, cliActor)
			if res != nil {
				slog.Debug("Seed result", slog.Any("result", res))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "accounts:          %d created, %d skipped\n", res.AccountsCreated, res.AccountsSkipped)
			fmt.Fprintf(out, "currency policies: %d created, %d skipped\n", res.PoliciesCreated, res.PoliciesSkipped)
			if res.PolicyActivated != "" {
				fmt.Fprintf(out, "active policy:     %s\n", res.PolicyActivated)
			}
			fmt.Fprintf(out, "fiscal periods:    %d created, %d skipped\n", res.PeriodsCreated, res.PeriodsSkipped)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "seeds/chart_of_accounts.yaml", "seed file")
}

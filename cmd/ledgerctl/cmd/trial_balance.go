package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SscSPs/erp_ledger/internal/platform/bootstrap"
)

var trialBalanceAsOf string

var trialBalanceCmd = &cobra.Command{
	Use:   "trial-balance",
	Short: "Print the trial balance",
	Long: `Example:
  ledgerctl trial-balance --as-of 2025-03-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf := time.Now().UTC().Truncate(24 * time.Hour)
		if trialBalanceAsOf != "" {
			parsed, err := time.Parse(time.DateOnly, trialBalanceAsOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}
			asOf = parsed
		}

		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			tb, err := rt.Services.Account.GetTrialBalance(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CODE\tACCOUNT\tTYPE\tDEBIT\tCREDIT\t")
			for _, row := range tb.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", row.AccountCode, row.AccountName, row.AccountType,
					row.Debit.StringFixed(2), row.Credit.StringFixed(2))
			}
			fmt.Fprintf(w, "\tTOTAL\t\t%s\t%s\t\n", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}
			if !tb.IsBalanced {
				return fmt.Errorf("trial balance as of %s does not balance", asOf.Format(time.DateOnly))
			}
			return nil
		})
	},
}

func init() {
	trialBalanceCmd.Flags().StringVar(&trialBalanceAsOf, "as-of", "", "report date (YYYY-MM-DD, default today)")
}

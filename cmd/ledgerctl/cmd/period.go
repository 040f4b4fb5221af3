package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/bootstrap"
)

var (
	periodName  string
	periodStart string
	periodEnd   string
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Manage fiscal periods",
}

var periodCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a fiscal period",
	Long: `Example:
  ledgerctl period create --name FY2025-Q1 --start 2025-01-01 --end 2025-03-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := time.Parse(time.DateOnly, periodStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		end, err := time.Parse(time.DateOnly, periodEnd)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			p, err := rt.Services.FiscalPeriod.CreatePeriod(cmd.Context(), cliActor,
				dto.CreateFiscalPeriodRequest{Name: periodName, StartDate: start, EndDate: end})
			if err != nil {
				return err
			}
			printPeriods(cmd.OutOrStdout(), *p)
			return nil
		})
	},
}

var periodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fiscal periods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			periods, err := rt.Services.FiscalPeriod.ListPeriods(cmd.Context())
			if err != nil {
				return err
			}
			printPeriods(cmd.OutOrStdout(), periods...)
			return nil
		})
	},
}

var periodCloseCmd = &cobra.Command{
	Use:   "close <period-id>",
	Short: "Close a period, posting the closing entry when enabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			res, err := rt.Services.FiscalPeriod.ClosePeriod(cmd.Context(), cliActor, args[0])
			if err != nil {
				return err
			}
			printPeriods(cmd.OutOrStdout(), res.Period)
			if res.ClosingEntry != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "closing entry: %s\n", res.ClosingEntry.EntryID)
			}
			return nil
		})
	},
}

var periodLockCmd = &cobra.Command{
	Use:   "lock <period-id>",
	Short: "Lock a period permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			p, err := rt.Services.FiscalPeriod.LockPeriod(cmd.Context(), cliActor, args[0])
			if err != nil {
				return err
			}
			printPeriods(cmd.OutOrStdout(), *p)
			return nil
		})
	},
}

var periodReopenCmd = &cobra.Command{
	Use:   "reopen <period-id>",
	Short: "Reopen a closed, unlocked period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			p, err := rt.Services.FiscalPeriod.ReopenPeriod(cmd.Context(), cliActor, args[0])
			if err != nil {
				return err
			}
			printPeriods(cmd.OutOrStdout(), *p)
			return nil
		})
	},
}

func printPeriods(out io.Writer, periods ...domain.FiscalPeriod) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTART\tEND\tSTATUS")
	for _, p := range periods {
		status := "open"
		switch {
		case p.IsLocked:
			status = "locked"
		case p.IsClosed:
			status = "closed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.PeriodID, p.Name,
			p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), status)
	}
	w.Flush()
}

func init() {
	periodCreateCmd.Flags().StringVar(&periodName, "name", "", "period name")
	periodCreateCmd.Flags().StringVar(&periodStart, "start", "", "first day (YYYY-MM-DD)")
	periodCreateCmd.Flags().StringVar(&periodEnd, "end", "", "last day (YYYY-MM-DD)")
	_ = periodCreateCmd.MarkFlagRequired("name")
	_ = periodCreateCmd.MarkFlagRequired("start")
	_ = periodCreateCmd.MarkFlagRequired("end")

	periodCmd.AddCommand(periodCreateCmd, periodListCmd, periodCloseCmd, periodLockCmd, periodReopenCmd)
}

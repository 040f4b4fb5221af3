package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/bootstrap"
)

var (
	rateFrom   string
	rateTo     string
	rateValue  string
	rateAt     string
	rateSource string
	rateNotes  string
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Manage exchange rates",
}

var rateRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append an exchange rate to the history",
	Long: `Example:
  ledgerctl rate record --from USD --to SAR --rate 3.75 --at 2025-01-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := decimal.NewFromString(rateValue)
		if err != nil {
			return fmt.Errorf("invalid --rate: %w", err)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("--rate must be positive")
		}
		req := dto.RecordExchangeRateRequest{
			FromCurrency: strings.ToUpper(rateFrom),
			ToCurrency:   strings.ToUpper(rateTo),
			Rate:         rate,
			Source:       domain.RateSource(strings.ToUpper(rateSource)),
			Notes:        rateNotes,
		}
		if rateAt != "" {
			at, err := time.Parse(time.DateOnly, rateAt)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			req.EffectiveAt = &at
		}

		return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
			recorded, err := rt.Services.ExchangeRate.RecordRate(cmd.Context(), cliActor, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s = %s (%s) effective %s\n",
				recorded.RateID, recorded.FromCurrency, recorded.ToCurrency,
				recorded.Rate.String(), recorded.Source, recorded.EffectiveAt.Format(time.RFC3339))
			return nil
		})
	},
}

func init() {
	rateRecordCmd.Flags().StringVar(&rateFrom, "from", "", "source currency (ISO 4217)")
	rateRecordCmd.Flags().StringVar(&rateTo, "to", "", "target currency (ISO 4217)")
	rateRecordCmd.Flags().StringVar(&rateValue, "rate", "", "units of --to per unit of --from")
	rateRecordCmd.Flags().StringVar(&rateAt, "at", "", "effective date (YYYY-MM-DD, default now)")
	rateRecordCmd.Flags().StringVar(&rateSource, "source", string(domain.RateManual), "MANUAL, CENTRAL_BANK, API or SYSTEM")
	rateRecordCmd.Flags().StringVar(&rateNotes, "notes", "", "free text")
	_ = rateRecordCmd.MarkFlagRequired("from")
	_ = rateRecordCmd.MarkFlagRequired("to")
	_ = rateRecordCmd.MarkFlagRequired("rate")

	rateCmd.AddCommand(rateRecordCmd)
}

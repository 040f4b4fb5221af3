package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceTolerance is the accepted difference for a trial balance to count as balanced.
var TrialBalanceTolerance = decimal.New(1, -2)

// AccountActivity sums the debit and credit columns posted to one account.
type AccountActivity struct {
	AccountID   string          `json:"accountID"`
	AccountCode string          `json:"accountCode"`
	AccountName string          `json:"accountName"`
	AccountType AccountType     `json:"accountType"`
	Debits      decimal.Decimal `json:"debits"`
	Credits     decimal.Decimal `json:"credits"`
}

// Balance returns the activity in the account's normal sign.
func (a AccountActivity) Balance() decimal.Decimal {
	return a.AccountType.NormalBalance(a.Debits, a.Credits)
}

// AccountBalance is the balance of one account as of a date.
type AccountBalance struct {
	AccountCode string          `json:"accountCode"`
	AccountType AccountType     `json:"accountType"`
	AsOf        time.Time       `json:"asOf"`
	Debits      decimal.Decimal `json:"debits"`
	Credits     decimal.Decimal `json:"credits"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalanceRow represents a single row in a trial balance report.
type TrialBalanceRow struct {
	AccountCode string          `json:"accountCode"`
	AccountName string          `json:"accountName"`
	AccountType AccountType     `json:"accountType"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account with a nonzero balance on its natural side.
type TrialBalance struct {
	AsOf        time.Time         `json:"asOf"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	IsBalanced  bool              `json:"isBalanced"`
}

// BuildTrialBalance turns account activity into trial balance rows.
// A debit-normal account with a negative balance is shown on the credit side and vice versa.
func BuildTrialBalance(asOf time.Time, activity []AccountActivity) TrialBalance {
	tb := TrialBalance{AsOf: asOf, Rows: []TrialBalanceRow{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range activity {
		net := a.Debits.Sub(a.Credits)
		if net.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountCode: a.AccountCode,
			AccountName: a.AccountName,
			AccountType: a.AccountType,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		if net.IsPositive() {
			row.Debit = net
		} else {
			row.Credit = net.Neg()
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}
	tb.IsBalanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThan(TrialBalanceTolerance)
	return tb
}

// ForeignCurrencyBalance is an account's position in one foreign currency together with
// the ledger-currency amount it is currently carried at.
type ForeignCurrencyBalance struct {
	AccountID      string          `json:"accountID"`
	AccountCode    string          `json:"accountCode"`
	AccountType    AccountType     `json:"accountType"`
	Currency       string          `json:"currency"`
	ForeignAmount  decimal.Decimal `json:"foreignAmount"`  // original debits - original credits
	CarryingAmount decimal.Decimal `json:"carryingAmount"` // ledger debits - ledger credits
}

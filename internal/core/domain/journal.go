package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED"
)

// Reference types of entries the ledger produces itself.
const (
	ReferencePeriodClose = "FISCAL_PERIOD_CLOSE"
	ReferenceRevaluation = "FX_REVALUATION"
)

// BalanceTolerance is the largest accepted difference between total debits and total credits.
var BalanceTolerance = decimal.New(1, -3)

// MinEntryLines is the smallest number of lines a journal entry may carry.
const MinEntryLines = 2

// JournalEntry is the header of a balanced posting. Once posted it is immutable;
// corrections go through a compensating reversal entry.
type JournalEntry struct {
	EntryID       string        `json:"entryID"`
	VoucherNumber string        `json:"voucherNumber"`
	EntryDate     time.Time     `json:"entryDate"`
	Description   string        `json:"description"`
	PeriodID      string        `json:"periodID"`
	Status        JournalStatus `json:"status"`
	ReferenceType string        `json:"referenceType,omitempty"`
	ReferenceID   string        `json:"referenceID,omitempty"`

	TransactionCurrency string             `json:"transactionCurrency"`
	LedgerCurrency      string             `json:"ledgerCurrency"`
	ExchangeRate        *decimal.Decimal   `json:"exchangeRate,omitempty"`
	ConversionDecision  ConversionDecision `json:"conversionDecision"`

	ReversalOfID *string `json:"reversalOfID,omitempty"`
	ReversedByID *string `json:"reversedByID,omitempty"`

	TotalDebit decimal.Decimal `json:"totalDebit"`
	AuditFields
}

// IsReversal reports whether the entry compensates another entry.
func (e JournalEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}

// JournalEntryLine is one debit or credit against a single account.
// Debit and Credit are in the ledger currency; the Original* fields keep the
// amounts as entered in the transaction currency.
type JournalEntryLine struct {
	LineID         string          `json:"lineID"`
	EntryID        string          `json:"entryID"`
	LineNumber     int             `json:"lineNumber"`
	AccountID      string          `json:"accountID"`
	AccountCode    string          `json:"accountCode"`
	Description    string          `json:"description,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	OriginalDebit  decimal.Decimal `json:"originalDebit"`
	OriginalCredit decimal.Decimal `json:"originalCredit"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Validate checks that both amounts are non-negative and exactly one of them is nonzero.
func (l JournalEntryLine) Validate() error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return apperrors.NewValidationError(fmt.Sprintf("line %d: amounts must not be negative", l.LineNumber))
	}
	if l.Debit.IsZero() == l.Credit.IsZero() {
		return apperrors.NewValidationError(fmt.Sprintf("line %d: exactly one of debit or credit must be nonzero", l.LineNumber))
	}
	return nil
}

// Amount returns the nonzero side of the line.
func (l JournalEntryLine) Amount() decimal.Decimal {
	if l.Debit.IsZero() {
		return l.Credit
	}
	return l.Debit
}

// IsDebit reports whether the line is a debit.
func (l JournalEntryLine) IsDebit() bool {
	return !l.Debit.IsZero()
}

// Swapped returns a copy with debit and credit exchanged, as used by reversal entries.
func (l JournalEntryLine) Swapped() JournalEntryLine {
	out := l
	out.Debit, out.Credit = l.Credit, l.Debit
	out.OriginalDebit, out.OriginalCredit = l.OriginalCredit, l.OriginalDebit
	return out
}

// SumLines totals the debit and credit columns.
func SumLines(lines []JournalEntryLine) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// AbsorbRoundingResidue books residue (converted debits minus credits beyond the
// intended difference) against the line carrying the largest amount. A residue
// larger than half a unit of places per line is not rounding and is left alone.
func AbsorbRoundingResidue(lines []JournalEntryLine, residue decimal.Decimal, places int32) {
	if residue.IsZero() || len(lines) == 0 {
		return
	}
	limit := decimal.New(5, -places-1).Mul(decimal.NewFromInt(int64(len(lines))))
	if residue.Abs().GreaterThan(limit) {
		return
	}
	largest := 0
	for i, l := range lines {
		if l.Debit.Add(l.Credit).GreaterThan(lines[largest].Debit.Add(lines[largest].Credit)) {
			largest = i
		}
	}
	if lines[largest].Debit.IsPositive() {
		lines[largest].Debit = lines[largest].Debit.Sub(residue)
	} else {
		lines[largest].Credit = lines[largest].Credit.Add(residue)
	}
}

// CheckBalance returns ErrUnbalancedEntry when |debits - credits| exceeds BalanceTolerance.
func CheckBalance(lines []JournalEntryLine) error {
	debits, credits := SumLines(lines)
	if debits.Sub(credits).Abs().GreaterThan(BalanceTolerance) {
		return apperrors.NewBusinessError(apperrors.ErrUnbalancedEntry,
			fmt.Sprintf("debits %s and credits %s differ by more than %s", debits.String(), credits.String(), BalanceTolerance.String()))
	}
	return nil
}

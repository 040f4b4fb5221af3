package domain_test

import (
	"errors"
	"testing"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(debit, credit string) domain.JournalEntryLine {
	return domain.JournalEntryLine{Debit: dec(debit), Credit: dec(credit)}
}

func TestJournalEntryLine_Validate(t *testing.T) {
	tests := []struct {
		name    string
		line    domain.JournalEntryLine
		wantErr bool
	}{
		{"debit only", line("10", "0"), false},
		{"credit only", line("0", "10"), false},
		{"both zero", line("0", "0"), true},
		{"both nonzero", line("5", "5"), true},
		{"negative debit", line("-5", "0"), true},
		{"negative credit", line("0", "-1"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckBalance(t *testing.T) {
	tests := []struct {
		name    string
		lines   []domain.JournalEntryLine
		balance bool
	}{
		{
			name:    "exact",
			lines:   []domain.JournalEntryLine{line("115", "0"), line("0", "100"), line("0", "15")},
			balance: true,
		},
		{
			name:    "within tolerance",
			lines:   []domain.JournalEntryLine{line("100.0009", "0"), line("0", "100")},
			balance: true,
		},
		{
			name:    "on the tolerance boundary",
			lines:   []domain.JournalEntryLine{line("100.001", "0"), line("0", "100")},
			balance: true,
		},
		{
			name:    "outside tolerance",
			lines:   []domain.JournalEntryLine{line("100.00", "0"), line("0", "99.99")},
			balance: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.CheckBalance(tt.lines)
			if tt.balance {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, apperrors.ErrUnbalancedEntry))
			}
		})
	}
}

func TestAbsorbRoundingResidue(t *testing.T) {
	tests := []struct {
		name    string
		lines   []domain.JournalEntryLine
		residue string
		want    []domain.JournalEntryLine
	}{
		{
			name:    "debits short, largest line is a credit",
			lines:   []domain.JournalEntryLine{line("0.3333", "0"), line("0.3333", "0"), line("0.3333", "0"), line("0", "1.0000")},
			residue: "-0.0001",
			want:    []domain.JournalEntryLine{line("0.3333", "0"), line("0.3333", "0"), line("0.3333", "0"), line("0", "0.9999")},
		},
		{
			name:    "debits over, largest line is a debit",
			lines:   []domain.JournalEntryLine{line("2.0001", "0"), line("0", "1"), line("0", "1")},
			residue: "0.0001",
			want:    []domain.JournalEntryLine{line("2.0000", "0"), line("0", "1"), line("0", "1")},
		},
		{
			name:    "no residue",
			lines:   []domain.JournalEntryLine{line("1", "0"), line("0", "1")},
			residue: "0",
			want:    []domain.JournalEntryLine{line("1", "0"), line("0", "1")},
		},
		{
			name:    "more than rounding is left for the balance check",
			lines:   []domain.JournalEntryLine{line("1.01", "0"), line("0", "1")},
			residue: "0.01",
			want:    []domain.JournalEntryLine{line("1.01", "0"), line("0", "1")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain.AbsorbRoundingResidue(tt.lines, decimal.RequireFromString(tt.residue), 4)
			for i := range tt.want {
				assert.True(t, tt.want[i].Debit.Equal(tt.lines[i].Debit), "line %d debit %s", i, tt.lines[i].Debit)
				assert.True(t, tt.want[i].Credit.Equal(tt.lines[i].Credit), "line %d credit %s", i, tt.lines[i].Credit)
			}
		})
	}
}

func TestJournalEntryLine_Swapped(t *testing.T) {
	l := domain.JournalEntryLine{
		Debit: dec("40"), Credit: decimal.Zero,
		OriginalDebit: dec("10"), OriginalCredit: decimal.Zero,
	}
	s := l.Swapped()

	assert.True(t, s.Debit.IsZero())
	assert.True(t, s.Credit.Equal(dec("40")))
	assert.True(t, s.OriginalCredit.Equal(dec("10")))
	assert.False(t, s.IsDebit())
	assert.True(t, s.Amount().Equal(dec("40")))
}

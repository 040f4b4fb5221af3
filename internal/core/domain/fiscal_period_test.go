package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFiscalPeriod_Contains(t *testing.T) {
	p := domain.FiscalPeriod{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}

	assert.True(t, p.Contains(date(2024, 1, 1)))
	assert.True(t, p.Contains(date(2024, 1, 31).Add(23*time.Hour)))
	assert.False(t, p.Contains(date(2024, 2, 1)))
	assert.False(t, p.Contains(date(2023, 12, 31)))
}

func TestFiscalPeriod_Overlaps(t *testing.T) {
	p := domain.FiscalPeriod{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}

	assert.True(t, p.Overlaps(date(2024, 1, 31), date(2024, 2, 28)))
	assert.True(t, p.Overlaps(date(2023, 12, 1), date(2024, 1, 1)))
	assert.False(t, p.Overlaps(date(2024, 2, 1), date(2024, 2, 29)))
}

func TestFiscalPeriod_PostingError(t *testing.T) {
	tests := []struct {
		name   string
		period domain.FiscalPeriod
		want   error
		status domain.PeriodStatus
	}{
		{"open", domain.FiscalPeriod{}, nil, domain.PeriodOpen},
		{"closed", domain.FiscalPeriod{IsClosed: true}, apperrors.ErrPeriodClosed, domain.PeriodClosed},
		{"locked", domain.FiscalPeriod{IsLocked: true}, apperrors.ErrPeriodLocked, domain.PeriodLocked},
		{"closed and locked reports locked", domain.FiscalPeriod{IsClosed: true, IsLocked: true}, apperrors.ErrPeriodLocked, domain.PeriodLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.period.PostingError()
			assert.Equal(t, tt.status, tt.period.Status())
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAccountType_NormalBalance(t *testing.T) {
	debits, credits := decimal.NewFromInt(150), decimal.NewFromInt(40)

	assert.Equal(t, "110", domain.Asset.NormalBalance(debits, credits).String())
	assert.Equal(t, "110", domain.Expense.NormalBalance(debits, credits).String())
	assert.Equal(t, "-110", domain.Revenue.NormalBalance(debits, credits).String())
	assert.Equal(t, "-110", domain.Liability.NormalBalance(debits, credits).String())
	assert.False(t, domain.AccountType("INCOME").IsValid())
}

func TestBuildTrialBalance(t *testing.T) {
	activity := []domain.AccountActivity{
		{AccountCode: "1110", AccountType: domain.Asset, Debits: decimal.NewFromInt(115), Credits: decimal.Zero},
		{AccountCode: "4100", AccountType: domain.Revenue, Debits: decimal.Zero, Credits: decimal.NewFromInt(100)},
		{AccountCode: "2210", AccountType: domain.Liability, Debits: decimal.Zero, Credits: decimal.NewFromInt(15)},
		{AccountCode: "1200", AccountType: domain.Asset, Debits: decimal.NewFromInt(5), Credits: decimal.NewFromInt(5)},
	}

	tb := domain.BuildTrialBalance(date(2024, 1, 31), activity)

	assert.Len(t, tb.Rows, 3)
	assert.True(t, tb.TotalDebit.Equal(decimal.NewFromInt(115)))
	assert.True(t, tb.TotalCredit.Equal(decimal.NewFromInt(115)))
	assert.True(t, tb.IsBalanced)
}

func TestFiscalPeriod_ValidateTransition(t *testing.T) {
	open := domain.FiscalPeriod{Name: "2024-01"}
	closed := domain.FiscalPeriod{Name: "2024-01", IsClosed: true}
	locked := domain.FiscalPeriod{Name: "2024-01", IsClosed: true, IsLocked: true}

	tests := []struct {
		name   string
		period domain.FiscalPeriod
		target domain.PeriodStatus
		want   error
	}{
		{"close open", open, domain.PeriodClosed, nil},
		{"close closed", closed, domain.PeriodClosed, apperrors.ErrConflict},
		{"lock open", open, domain.PeriodLocked, apperrors.ErrBusinessLogic},
		{"lock closed", closed, domain.PeriodLocked, nil},
		{"lock locked", locked, domain.PeriodLocked, apperrors.ErrPeriodLocked},
		{"reopen closed", closed, domain.PeriodOpen, nil},
		{"reopen open", open, domain.PeriodOpen, apperrors.ErrConflict},
		{"reopen locked", locked, domain.PeriodOpen, apperrors.ErrPeriodLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.period.ValidateTransition(tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

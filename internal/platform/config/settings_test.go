package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestViperSettings_ReadsAtCallTime(t *testing.T) {
	v := viper.New()
	v.Set("accounting.prevent_posting_to_parent_accounts", true)
	v.Set("accounting.currency.amount_precision", 4)
	v.Set("accounting.currency.exchange_rate_precision", 8)
	v.Set("tax.use_tax_engine", true)

	s := NewViperSettings(v)
	assert.True(t, s.Accounting().PreventPostingToParentAccounts)
	assert.True(t, s.Accounting().Tax.UseTaxEngine)

	// a later change is visible to the next call without rebuilding the provider
	v.Set("accounting.prevent_posting_to_parent_accounts", false)
	v.Set("tax.use_tax_engine", false)
	assert.False(t, s.Accounting().PreventPostingToParentAccounts)
	assert.False(t, s.Accounting().Tax.UseTaxEngine)
	assert.EqualValues(t, 4, s.Accounting().Currency.AmountPrecision)
}

func TestViperSettings_FallsBackToDefaults(t *testing.T) {
	v := viper.New()
	v.Set("accounting.vat_rate", "not-a-number")

	got := NewViperSettings(v).Accounting()
	d := DefaultAccountingSettings()

	assert.True(t, got.VATRate.Equal(d.VATRate))
	assert.Equal(t, "3200", got.RetainedEarningsAccount)
	assert.Equal(t, "4501", got.Currency.UnrealizedGainAccount)
	assert.Equal(t, "VOU", got.VoucherPrefix)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

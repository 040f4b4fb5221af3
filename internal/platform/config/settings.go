package config

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// CurrencySettings is the accounting.currency.* block.
type CurrencySettings struct {
	ExchangeRatePrecision     int32
	AmountPrecision           int32
	DefaultExchangeRateSource string
	ReferenceCurrency         string
	ExchangeGainAccount       string
	ExchangeLossAccount       string
	UnrealizedGainAccount     string
	UnrealizedLossAccount     string
	AutoRecordRates           bool
	RequireExchangeRate       bool
}

// TaxSettings is the tax.* block.
type TaxSettings struct {
	UseTaxEngine     bool
	OutputVATAccount string
	InputVATAccount  string
}

// AccountingSettings groups every setting the posting core consults.
type AccountingSettings struct {
	PreventPostingToParentAccounts bool
	VATRate                        decimal.Decimal
	RetainedEarningsAccount        string
	VoucherPrefix                  string
	Currency                       CurrencySettings
	Tax                            TaxSettings
}

// SettingsProvider returns the current accounting settings.
// Implementations must read the backing store on every call.
type SettingsProvider interface {
	Accounting() AccountingSettings
}

// DefaultAccountingSettings mirrors the defaults registered with viper.
func DefaultAccountingSettings() AccountingSettings {
	return AccountingSettings{
		PreventPostingToParentAccounts: true,
		VATRate:                        decimal.RequireFromString("0.15"),
		RetainedEarningsAccount:        "3200",
		VoucherPrefix:                  "VOU",
		Currency: CurrencySettings{
			ExchangeRatePrecision:     8,
			AmountPrecision:           4,
			DefaultExchangeRateSource: "MANUAL",
			ReferenceCurrency:         "SAR",
			ExchangeGainAccount:       "4500",
			ExchangeLossAccount:       "5500",
			UnrealizedGainAccount:     "4501",
			UnrealizedLossAccount:     "5501",
			AutoRecordRates:           true,
			RequireExchangeRate:       true,
		},
		Tax: TaxSettings{
			UseTaxEngine:     true,
			OutputVATAccount: "2210",
			InputVATAccount:  "1410",
		},
	}
}

func setAccountingDefaults() {
	d := DefaultAccountingSettings()
	viper.SetDefault("accounting.prevent_posting_to_parent_accounts", d.PreventPostingToParentAccounts)
	viper.SetDefault("accounting.vat_rate", d.VATRate.String())
	viper.SetDefault("accounting.retained_earnings_account", d.RetainedEarningsAccount)
	viper.SetDefault("accounting.voucher_prefix", d.VoucherPrefix)
	viper.SetDefault("accounting.currency.exchange_rate_precision", d.Currency.ExchangeRatePrecision)
	viper.SetDefault("accounting.currency.amount_precision", d.Currency.AmountPrecision)
	viper.SetDefault("accounting.currency.default_exchange_rate_source", d.Currency.DefaultExchangeRateSource)
	viper.SetDefault("accounting.currency.reference_currency", d.Currency.ReferenceCurrency)
	viper.SetDefault("accounting.currency.accounts.exchange_gain", d.Currency.ExchangeGainAccount)
	viper.SetDefault("accounting.currency.accounts.exchange_loss", d.Currency.ExchangeLossAccount)
	viper.SetDefault("accounting.currency.accounts.unrealized_gain", d.Currency.UnrealizedGainAccount)
	viper.SetDefault("accounting.currency.accounts.unrealized_loss", d.Currency.UnrealizedLossAccount)
	viper.SetDefault("accounting.currency.auto_record_rates", d.Currency.AutoRecordRates)
	viper.SetDefault("accounting.currency.require_exchange_rate", d.Currency.RequireExchangeRate)
	viper.SetDefault("tax.use_tax_engine", d.Tax.UseTaxEngine)
	viper.SetDefault("tax.output_vat_account", d.Tax.OutputVATAccount)
	viper.SetDefault("tax.input_vat_account", d.Tax.InputVATAccount)
}

// ViperSettings reads accounting settings from a viper instance on every call.
type ViperSettings struct {
	v *viper.Viper
}

// NewViperSettings wraps v.
func NewViperSettings(v *viper.Viper) *ViperSettings {
	return &ViperSettings{v: v}
}

// Accounting implements SettingsProvider.
func (s *ViperSettings) Accounting() AccountingSettings {
	d := DefaultAccountingSettings()
	vat, err := decimal.NewFromString(s.v.GetString("accounting.vat_rate"))
	if err != nil {
		vat = d.VATRate
	}
	return AccountingSettings{
		PreventPostingToParentAccounts: s.v.GetBool("accounting.prevent_posting_to_parent_accounts"),
		VATRate:                        vat,
		RetainedEarningsAccount:        orDefault(s.v.GetString("accounting.retained_earnings_account"), d.RetainedEarningsAccount),
		VoucherPrefix:                  orDefault(s.v.GetString("accounting.voucher_prefix"), d.VoucherPrefix),
		Currency: CurrencySettings{
			ExchangeRatePrecision:     s.v.GetInt32("accounting.currency.exchange_rate_precision"),
			AmountPrecision:           s.v.GetInt32("accounting.currency.amount_precision"),
			DefaultExchangeRateSource: orDefault(s.v.GetString("accounting.currency.default_exchange_rate_source"), d.Currency.DefaultExchangeRateSource),
			ReferenceCurrency:         orDefault(s.v.GetString("accounting.currency.reference_currency"), d.Currency.ReferenceCurrency),
			ExchangeGainAccount:       orDefault(s.v.GetString("accounting.currency.accounts.exchange_gain"), d.Currency.ExchangeGainAccount),
			ExchangeLossAccount:       orDefault(s.v.GetString("accounting.currency.accounts.exchange_loss"), d.Currency.ExchangeLossAccount),
			UnrealizedGainAccount:     orDefault(s.v.GetString("accounting.currency.accounts.unrealized_gain"), d.Currency.UnrealizedGainAccount),
			UnrealizedLossAccount:     orDefault(s.v.GetString("accounting.currency.accounts.unrealized_loss"), d.Currency.UnrealizedLossAccount),
			AutoRecordRates:           s.v.GetBool("accounting.currency.auto_record_rates"),
			RequireExchangeRate:       s.v.GetBool("accounting.currency.require_exchange_rate"),
		},
		Tax: TaxSettings{
			UseTaxEngine:     s.v.GetBool("tax.use_tax_engine"),
			OutputVATAccount: orDefault(s.v.GetString("tax.output_vat_account"), d.Tax.OutputVATAccount),
			InputVATAccount:  orDefault(s.v.GetString("tax.input_vat_account"), d.Tax.InputVATAccount),
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// StaticSettings is a fixed SettingsProvider, used by the CLI and tests.
type StaticSettings AccountingSettings

// Accounting implements SettingsProvider.
func (s StaticSettings) Accounting() AccountingSettings {
	return AccountingSettings(s)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSource identifies where an exchange rate came from.
type RateSource string

const (
	RateManual      RateSource = "MANUAL"
	RateCentralBank RateSource = "CENTRAL_BANK"
	RateAPI         RateSource = "API"
	RateSystem      RateSource = "SYSTEM"
)

// IsValid reports whether s is a known source.
func (s RateSource) IsValid() bool {
	switch s {
	case RateManual, RateCentralBank, RateAPI, RateSystem:
		return true
	}
	return false
}

// IsExternal reports whether s names a provider a policy can draw rates from.
// SYSTEM rates are derived by the ledger itself.
func (s RateSource) IsExternal() bool {
	return s.IsValid() && s != RateSystem
}

// ExchangeRate is an append-only rate history record: one unit of FromCurrency
// is worth Rate units of ToCurrency from EffectiveAt on.
type ExchangeRate struct {
	RateID       string          `json:"rateID"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	Source       RateSource      `json:"source"`
	EffectiveAt  time.Time       `json:"effectiveAt"`
	Notes        string          `json:"notes,omitempty"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Inverse returns the rate for the opposite direction, rounded to precision places.
func (r ExchangeRate) Inverse(precision int32) ExchangeRate {
	inv := r
	inv.FromCurrency, inv.ToCurrency = r.ToCurrency, r.FromCurrency
	inv.Rate = decimal.NewFromInt(1).DivRound(r.Rate, precision)
	return inv
}

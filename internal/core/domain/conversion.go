package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionDecision records why an amount was or was not converted.
type ConversionDecision string

const (
	PolicyMandated ConversionDecision = "POLICY_MANDATED"
	UserRequested  ConversionDecision = "USER_REQUESTED"
	SameCurrency   ConversionDecision = "SAME_CURRENCY"
	Deferred       ConversionDecision = "DEFERRED"
	Exempted       ConversionDecision = "EXEMPTED"
)

type decisionTraits struct {
	involvesConversion bool
	label              string
}

var conversionDecisions = map[ConversionDecision]decisionTraits{
	PolicyMandated: {involvesConversion: true, label: "Converted as required by the currency policy"},
	UserRequested:  {involvesConversion: true, label: "Converted at the user's request"},
	SameCurrency:   {involvesConversion: false, label: "No conversion, same currency"},
	Deferred:       {involvesConversion: false, label: "Conversion deferred to a later stage"},
	Exempted:       {involvesConversion: false, label: "Exempt from conversion"},
}

// IsValid reports whether d is a known decision.
func (d ConversionDecision) IsValid() bool {
	_, ok := conversionDecisions[d]
	return ok
}

// InvolvesConversion reports whether the decision applies an exchange rate.
func (d ConversionDecision) InvolvesConversion() bool {
	return conversionDecisions[d].involvesConversion
}

// Label is the human readable description of the decision.
func (d ConversionDecision) Label() string {
	return conversionDecisions[d].label
}

// ConversionRequest asks the engine how to treat an amount at a lifecycle stage.
type ConversionRequest struct {
	TransactionCurrency string
	Stage               ConversionTiming
	Date                time.Time
	UserRequested       bool
	Exempt              bool
}

// ConversionContext is the outcome of a conversion decision, persisted alongside converted entries.
type ConversionContext struct {
	Decision            ConversionDecision `json:"decision"`
	TransactionCurrency string             `json:"transactionCurrency"`
	ReferenceCurrency   string             `json:"referenceCurrency"`
	Rate                *decimal.Decimal   `json:"rate,omitempty"`
	RateSource          RateSource         `json:"rateSource,omitempty"`
	RateDate            *time.Time         `json:"rateDate,omitempty"`
	Policy              *PolicySnapshot    `json:"policy,omitempty"`
}

// Apply converts amount with the context's rate, rounding to places decimal places
// (half away from zero). Contexts without conversion return amount unchanged.
func (c ConversionContext) Apply(amount decimal.Decimal, places int32) decimal.Decimal {
	if !c.Decision.InvolvesConversion() || c.Rate == nil {
		return amount
	}
	return amount.Mul(*c.Rate).Round(places)
}

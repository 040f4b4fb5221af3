package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to add an account to the chart of accounts.
type CreateAccountRequest struct {
	Code        string             `json:"code" binding:"required,max=32"`
	Name        string             `json:"name" binding:"required,max=255"`
	AccountType domain.AccountType `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentCode  string             `json:"parentCode,omitempty" binding:"omitempty,max=32"`
	Description string             `json:"description,omitempty"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	AccountType domain.AccountType `json:"accountType"`
	ParentCode  string             `json:"parentCode,omitempty"`
	Description string             `json:"description,omitempty"`
	IsActive    bool               `json:"isActive"`
	IsPostable  bool               `json:"isPostable"`
	CreatedAt   time.Time          `json:"createdAt"`
	CreatedBy   string             `json:"createdBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO.
func ToAccountResponse(a domain.Account, postable bool) AccountResponse {
	return AccountResponse{
		Code:        a.Code,
		Name:        a.Name,
		AccountType: a.AccountType,
		ParentCode:  a.ParentCode,
		Description: a.Description,
		IsActive:    a.IsActive,
		IsPostable:  postable,
		CreatedAt:   a.CreatedAt,
		CreatedBy:   a.CreatedBy,
	}
}

// AsOfParams are the query parameters of the balance and trial balance endpoints.
type AsOfParams struct {
	AsOf string `form:"asOf" binding:"omitempty,datetime=2006-01-02"`
}

// AsOfDate returns the requested date, or the end of today (UTC) when none was given.
func (p AsOfParams) AsOfDate(now time.Time) time.Time {
	if p.AsOf != "" {
		if t, err := time.Parse(time.DateOnly, p.AsOf); err == nil {
			return t
		}
	}
	return now.UTC().Truncate(24 * time.Hour)
}

// ListAccountsParams are the query parameters of the account listing.
type ListAccountsParams struct {
	IncludeInactive bool `form:"includeInactive"`
}

// ListAccountsResponse is the chart of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// AccountBalanceResponse is the balance of one account.
type AccountBalanceResponse struct {
	AccountCode string             `json:"accountCode"`
	AccountType domain.AccountType `json:"accountType"`
	AsOf        time.Time          `json:"asOf"`
	Debits      decimal.Decimal    `json:"debits"`
	Credits     decimal.Decimal    `json:"credits"`
	Balance     decimal.Decimal    `json:"balance"`
}

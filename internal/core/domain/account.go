package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// IsDebitNormal reports whether balances of this type grow with debits.
func (t AccountType) IsDebitNormal() bool {
	return t == Asset || t == Expense
}

// IsMonetary reports whether balances of this type are claims or holdings that
// change value with exchange rates. Only these are revalued.
func (t AccountType) IsMonetary() bool {
	return t == Asset || t == Liability
}

// NormalBalance returns the balance in the account's natural sign:
// debits minus credits for assets and expenses, credits minus debits otherwise.
func (t AccountType) NormalBalance(debits, credits decimal.Decimal) decimal.Decimal {
	if t.IsDebitNormal() {
		return debits.Sub(credits)
	}
	return credits.Sub(debits)
}

// Account is a node of the chart of accounts, addressed by its stable code.
type Account struct {
	AccountID   string      `json:"accountID"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	AccountType AccountType `json:"accountType"`
	ParentCode  string      `json:"parentCode,omitempty"` // empty for root accounts
	Description string      `json:"description,omitempty"`
	IsActive    bool        `json:"isActive"`
	HasChildren bool        `json:"hasChildren"` // derived; true for parent (grouping) accounts
	AuditFields
}

// IsLeaf reports whether the account has no child accounts.
func (a Account) IsLeaf() bool {
	return !a.HasChildren
}

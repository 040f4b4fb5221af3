package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// CreateFiscalPeriodRequest defines a new fiscal period.
type CreateFiscalPeriodRequest struct {
	Name      string    `json:"name" binding:"required,max=100"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required,gtefield=StartDate"`
}

// ClosePeriodResponse is a closed period together with its closing entry, if any.
type ClosePeriodResponse struct {
	Period       domain.FiscalPeriod `json:"period"`
	ClosingEntry *domain.JournalEntry `json:"closingEntry,omitempty"`
}

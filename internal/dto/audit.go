package dto

import "github.com/SscSPs/erp_ledger/internal/core/domain"

// ListAuditLogsParams are the query parameters of the audit endpoint.
type ListAuditLogsParams struct {
	Module    string  `form:"module"`
	Limit     int     `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
	NextToken *string `form:"nextToken"`
}

// ListAuditLogsResponse is one page of audit entries.
type ListAuditLogsResponse struct {
	Entries   []domain.AuditLogEntry `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

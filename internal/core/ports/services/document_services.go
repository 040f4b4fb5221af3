package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// DocumentGuardSvc checks whether a document may be reversed or deleted.
type DocumentGuardSvc interface {
	// CheckModification returns a ModificationForbiddenError for business-state violations
	// and an AuthorizationError when the actor may not act on the document.
	CheckModification(ctx context.Context, actor domain.Actor, doc domain.FinancialDocument, action domain.DocumentAction) error
}

// DocumentWorkflowSvc drives documents through Draft -> Posted -> {Reversed | Deleted}.
type DocumentWorkflowSvc interface {
	RegisterDocument(ctx context.Context, actor domain.Actor, req dto.CreateDocumentRequest) (*domain.FinancialDocument, error)
	GetDocument(ctx context.Context, documentID string) (*domain.FinancialDocument, error)
	PostDocument(ctx context.Context, actor domain.Actor, documentID string, req dto.PostDocumentRequest) (*dto.DocumentPostingResponse, error)
	ApplyPayment(ctx context.Context, actor domain.Actor, documentID string, req dto.ApplyPaymentRequest) (*domain.FinancialDocument, error)
	ReverseDocument(ctx context.Context, actor domain.Actor, documentID string, req dto.VoidDocumentRequest) (*dto.DocumentPostingResponse, error)
	DeleteDocument(ctx context.Context, actor domain.Actor, documentID string, req dto.VoidDocumentRequest) (*dto.DocumentPostingResponse, error)
}

// DocumentSvcFacade combines the document interfaces.
type DocumentSvcFacade interface {
	DocumentGuardSvc
	DocumentWorkflowSvc
}

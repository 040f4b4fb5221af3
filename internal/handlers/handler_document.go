package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// documentHandler drives invoices, purchases and journal vouchers through their ledger lifecycle.
type documentHandler struct {
	documentService portssvc.DocumentSvcFacade
}

func registerDocumentRoutes(rg *gin.RouterGroup, documentService portssvc.DocumentSvcFacade) {
	h := &documentHandler{documentService: documentService}

	docs := rg.Group("/documents")
	{
		docs.POST("", h.registerDocument)
		docs.GET("/:id", h.getDocument)
		docs.POST("/:id/post", h.postDocument)
		docs.POST("/:id/payments", h.applyPayment)
		docs.POST("/:id/reverse", h.reverseDocument)
		docs.DELETE("/:id", h.deleteDocument)
	}
}

// registerDocument godoc
// @Summary Register a draft document
// @Tags documents
// @Accept  json
// @Produce  json
// @Param   document body dto.CreateDocumentRequest true "Document"
// @Success 201 {object} Envelope{data=domain.FinancialDocument}
// @Failure 409 {object} Envelope "Document number already used for this kind"
// @Security BearerAuth
// @Router /documents [post]
func (h *documentHandler) registerDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	doc, err := h.documentService.RegisterDocument(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to register document")
		return
	}
	respond(c, http.StatusCreated, doc)
}

// getDocument godoc
// @Summary Get a document
// @Tags documents
// @Produce  json
// @Param   id path string true "Document ID"
// @Success 200 {object} Envelope{data=domain.FinancialDocument}
// @Failure 404 {object} Envelope "Document not found"
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *documentHandler) getDocument(c *gin.Context) {
	doc, err := h.documentService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get document")
		return
	}
	respond(c, http.StatusOK, doc)
}

// postDocument godoc
// @Summary Post a draft document to the ledger
// @Description Vouchers post their explicit lines. Invoices and purchases post a counter account line, net lines and tax lines.
// @Tags documents
// @Accept  json
// @Produce  json
// @Param   id path string true "Document ID"
// @Param   request body dto.PostDocumentRequest true "Posting details"
// @Success 201 {object} Envelope{data=dto.DocumentPostingResponse}
// @Failure 400 {object} Envelope "Not a draft, unbalanced, or period closed"
// @Failure 403 {object} Envelope "Not permitted for this module"
// @Security BearerAuth
// @Router /documents/{id}/post [post]
func (h *documentHandler) postDocument(c *gin.Context) {
	var req dto.PostDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	resp, err := h.documentService.PostDocument(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to post document")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Document posted",
		slog.String("document_number", resp.Document.DocumentNumber))
	respond(c, http.StatusCreated, resp)
}

// applyPayment godoc
// @Summary Apply a payment
// @Description Raises the amount paid of a posted document. The amount paid never exceeds the total.
// @Tags documents
// @Accept  json
// @Produce  json
// @Param   id path string true "Document ID"
// @Param   payment body dto.ApplyPaymentRequest true "Payment"
// @Success 200 {object} Envelope{data=domain.FinancialDocument}
// @Failure 400 {object} Envelope "Not posted, or exceeds the outstanding amount"
// @Security BearerAuth
// @Router /documents/{id}/payments [post]
func (h *documentHandler) applyPayment(c *gin.Context) {
	var req dto.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	doc, err := h.documentService.ApplyPayment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to apply payment")
		return
	}
	respond(c, http.StatusOK, doc)
}

// reverseDocument godoc
// @Summary Reverse a posted document
// @Description Blocked with reason PAYMENTS_APPLIED, PERIOD_CLOSED, PERIOD_LOCKED or INVALID_STATE.
// @Tags documents
// @Accept  json
// @Produce  json
// @Param   id path string true "Document ID"
// @Param   request body dto.VoidDocumentRequest false "Reason and reversal date"
// @Success 200 {object} Envelope{data=dto.DocumentPostingResponse}
// @Failure 400 {object} Envelope "Modification forbidden"
// @Failure 403 {object} Envelope "Not permitted"
// @Security BearerAuth
// @Router /documents/{id}/reverse [post]
func (h *documentHandler) reverseDocument(c *gin.Context) {
	req, ok := bindVoidRequest(c)
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	resp, err := h.documentService.ReverseDocument(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to reverse document")
		return
	}
	respond(c, http.StatusOK, resp)
}

// deleteDocument godoc
// @Summary Delete a document
// @Description Drafts are discarded; posted documents are voided with a reversing entry. Guards are the same as for reversal.
// @Tags documents
// @Accept  json
// @Produce  json
// @Param   id path string true "Document ID"
// @Param   request body dto.VoidDocumentRequest false "Reason"
// @Success 200 {object} Envelope{data=dto.DocumentPostingResponse}
// @Failure 400 {object} Envelope "Modification forbidden"
// @Failure 403 {object} Envelope "Not permitted"
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *documentHandler) deleteDocument(c *gin.Context) {
	req, ok := bindVoidRequest(c)
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	resp, err := h.documentService.DeleteDocument(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to delete document")
		return
	}
	respond(c, http.StatusOK, resp)
}

// bindVoidRequest binds the optional body of reverse and delete calls.
func bindVoidRequest(c *gin.Context) (dto.VoidDocumentRequest, bool) {
	var req dto.VoidDocumentRequest
	if c.Request.ContentLength <= 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return req, false
	}
	return req, true
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/erp_ledger/internal/authz"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// journalHandler handles HTTP requests related to journal entries.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

// newJournalHandler creates a new journalHandler.
func newJournalHandler(journalService portssvc.JournalSvcFacade) *journalHandler {
	return &journalHandler{
		journalService: journalService,
	}
}

// registerJournalRoutes registers journal entry routes. Posting and reversing are
// authorized here; the posting engine itself is permission agnostic.
func registerJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade, policy *authz.Policy) {
	h := newJournalHandler(journalService)

	entries := rg.Group("/journal-entries")
	{
		entries.POST("", middleware.RequirePermission(policy, authz.PermPostJournalEntries), h.postEntry)
		entries.GET("", h.listEntries)
		entries.GET("/:id", h.getEntry)
		entries.POST("/:id/reverse", middleware.RequirePermission(policy, authz.PermReverseJournalEntry), h.reverseEntry)
	}
}

// postEntry godoc
// @Summary Post a journal entry
// @Description Validates and atomically records a balanced entry. Every line must target an active leaf account and the entry date must fall in an open fiscal period.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   entry body dto.PostJournalEntryRequest true "Journal entry"
// @Success 201 {object} Envelope{data=domain.JournalEntry}
// @Failure 400 {object} Envelope "Unbalanced entry, invalid posting target, closed or locked period, missing exchange rate"
// @Failure 403 {object} Envelope "Missing journal_entries.post"
// @Security BearerAuth
// @Router /journal-entries [post]
func (h *journalHandler) postEntry(c *gin.Context) {
	var req dto.PostJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	entry, err := h.journalService.Post(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to post journal entry")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Journal entry posted",
		slog.String("entry_id", entry.EntryID),
		slog.String("voucher_number", entry.VoucherNumber))
	respond(c, http.StatusCreated, entry)
}

// listEntries godoc
// @Summary List journal entries
// @Description Newest first, cursor paginated.
// @Tags journal-entries
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Cursor from the previous page"
// @Param   referenceType query string false "Filter by reference type"
// @Param   referenceID query string false "Filter by reference id"
// @Success 200 {object} Envelope{data=dto.ListJournalEntriesResponse}
// @Security BearerAuth
// @Router /journal-entries [get]
func (h *journalHandler) listEntries(c *gin.Context) {
	var params dto.ListJournalEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.journalService.ListEntries(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "Failed to list journal entries")
		return
	}
	respond(c, http.StatusOK, resp)
}

// getEntry godoc
// @Summary Get a journal entry with its lines
// @Tags journal-entries
// @Produce  json
// @Param   id path string true "Entry ID"
// @Success 200 {object} Envelope{data=dto.JournalEntryResponse}
// @Failure 404 {object} Envelope "Entry not found"
// @Security BearerAuth
// @Router /journal-entries/{id} [get]
func (h *journalHandler) getEntry(c *gin.Context) {
	entry, err := h.journalService.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get journal entry")
		return
	}
	respond(c, http.StatusOK, entry)
}

// reverseEntry godoc
// @Summary Reverse a journal entry
// @Description Posts a compensating entry with debit and credit swapped and marks the original REVERSED.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   id path string true "Entry ID"
// @Param   body body dto.ReverseJournalEntryRequest false "Reversal options"
// @Success 201 {object} Envelope{data=domain.JournalEntry}
// @Failure 400 {object} Envelope "Already reversed, or the period is closed"
// @Failure 403 {object} Envelope "Missing journal_entries.reverse"
// @Failure 404 {object} Envelope "Entry not found"
// @Security BearerAuth
// @Router /journal-entries/{id}/reverse [post]
func (h *journalHandler) reverseEntry(c *gin.Context) {
	var req dto.ReverseJournalEntryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	reversal, err := h.journalService.Reverse(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to reverse journal entry")
		return
	}
	respond(c, http.StatusCreated, reversal)
}

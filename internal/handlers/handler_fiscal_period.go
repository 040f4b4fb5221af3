package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

type fiscalPeriodHandler struct {
	periodService portssvc.FiscalPeriodSvcFacade
}

func registerFiscalPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.FiscalPeriodSvcFacade) {
	h := &fiscalPeriodHandler{periodService: periodService}

	periods := rg.Group("/fiscal-periods")
	{
		periods.POST("", h.createPeriod)
		periods.GET("", h.listPeriods)
		periods.POST("/:id/close", h.closePeriod)
		periods.POST("/:id/reopen", h.reopenPeriod)
		periods.POST("/:id/lock", h.lockPeriod)
	}
}

// createPeriod godoc
// @Summary Create a fiscal period
// @Description Periods may not overlap. A new period is open.
// @Tags fiscal-periods
// @Accept  json
// @Produce  json
// @Param   period body dto.CreateFiscalPeriodRequest true "Period"
// @Success 201 {object} Envelope{data=domain.FiscalPeriod}
// @Failure 400 {object} Envelope "Invalid range"
// @Failure 409 {object} Envelope "Overlaps an existing period"
// @Security BearerAuth
// @Router /fiscal-periods [post]
func (h *fiscalPeriodHandler) createPeriod(c *gin.Context) {
	var req dto.CreateFiscalPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	period, err := h.periodService.CreatePeriod(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to create fiscal period")
		return
	}
	respond(c, http.StatusCreated, period)
}

// listPeriods godoc
// @Summary List fiscal periods
// @Tags fiscal-periods
// @Produce  json
// @Success 200 {object} Envelope{data=[]domain.FiscalPeriod}
// @Security BearerAuth
// @Router /fiscal-periods [get]
func (h *fiscalPeriodHandler) listPeriods(c *gin.Context) {
	periods, err := h.periodService.ListPeriods(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list fiscal periods")
		return
	}
	respond(c, http.StatusOK, periods)
}

// closePeriod godoc
// @Summary Close a fiscal period
// @Description Posts the closing entry moving revenue and expense balances to retained earnings, then soft-closes the period.
// @Tags fiscal-periods
// @Produce  json
// @Param   id path string true "Period ID"
// @Success 200 {object} Envelope{data=dto.ClosePeriodResponse}
// @Failure 400 {object} Envelope "Already closed or locked"
// @Failure 403 {object} Envelope "Missing fiscal_periods.manage"
// @Security BearerAuth
// @Router /fiscal-periods/{id}/close [post]
func (h *fiscalPeriodHandler) closePeriod(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	resp, err := h.periodService.ClosePeriod(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to close fiscal period")
		return
	}
	respond(c, http.StatusOK, resp)
}

// reopenPeriod godoc
// @Summary Reopen a closed fiscal period
// @Description Locked periods cannot be reopened.
// @Tags fiscal-periods
// @Produce  json
// @Param   id path string true "Period ID"
// @Success 200 {object} Envelope{data=domain.FiscalPeriod}
// @Failure 400 {object} Envelope "Not closed, or locked"
// @Security BearerAuth
// @Router /fiscal-periods/{id}/reopen [post]
func (h *fiscalPeriodHandler) reopenPeriod(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	period, err := h.periodService.ReopenPeriod(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to reopen fiscal period")
		return
	}
	respond(c, http.StatusOK, period)
}

// lockPeriod godoc
// @Summary Lock a fiscal period
// @Description Locking is permanent and implies closed.
// @Tags fiscal-periods
// @Produce  json
// @Param   id path string true "Period ID"
// @Success 200 {object} Envelope{data=domain.FiscalPeriod}
// @Failure 400 {object} Envelope "Already locked"
// @Failure 403 {object} Envelope "Missing fiscal_periods.lock"
// @Security BearerAuth
// @Router /fiscal-periods/{id}/lock [post]
func (h *fiscalPeriodHandler) lockPeriod(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	period, err := h.periodService.LockPeriod(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to lock fiscal period")
		return
	}
	respond(c, http.StatusOK, period)
}

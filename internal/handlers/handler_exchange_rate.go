package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// exchangeRateHandler handles HTTP requests related to the exchange rate history.
type exchangeRateHandler struct {
	exchangeRateService portssvc.ExchangeRateSvcFacade
}

func newExchangeRateHandler(ers portssvc.ExchangeRateSvcFacade) *exchangeRateHandler {
	return &exchangeRateHandler{
		exchangeRateService: ers,
	}
}

func registerExchangeRateRoutes(rg *gin.RouterGroup, exchangeRateService portssvc.ExchangeRateSvcFacade) {
	h := newExchangeRateHandler(exchangeRateService)

	rates := rg.Group("/exchange-rates")
	{
		rates.POST("", h.recordRate)
		rates.GET("/history", h.listRates)
	}
}

// recordRate godoc
// @Summary Record an exchange rate
// @Description Appends a rate to the history. Rates are never updated in place.
// @Tags exchange-rates
// @Accept  json
// @Produce  json
// @Param   rate body dto.RecordExchangeRateRequest true "Rate"
// @Success 201 {object} Envelope{data=domain.ExchangeRate}
// @Failure 400 {object} Envelope "Invalid rate"
// @Failure 403 {object} Envelope "Missing currency.manage"
// @Security BearerAuth
// @Router /exchange-rates [post]
func (h *exchangeRateHandler) recordRate(c *gin.Context) {
	var req dto.RecordExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	rate, err := h.exchangeRateService.RecordRate(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to record exchange rate")
		return
	}
	respond(c, http.StatusCreated, rate)
}

// listRates godoc
// @Summary Exchange rate history
// @Tags exchange-rates
// @Produce  json
// @Param   from query string true "From currency"
// @Param   to query string true "To currency"
// @Param   limit query int false "Maximum rows" default(50)
// @Success 200 {object} Envelope{data=[]domain.ExchangeRate}
// @Security BearerAuth
// @Router /exchange-rates/history [get]
func (h *exchangeRateHandler) listRates(c *gin.Context) {
	var params dto.ListExchangeRatesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	rates, err := h.exchangeRateService.ListRates(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "Failed to list exchange rates")
		return
	}
	respond(c, http.StatusOK, rates)
}

package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// currencyHandler handles currency policy, conversion preview and revaluation requests.
type currencyHandler struct {
	currencyService    portssvc.CurrencySvcFacade
	revaluationService portssvc.RevaluationSvc
}

func newCurrencyHandler(cs portssvc.CurrencySvcFacade, rs portssvc.RevaluationSvc) *currencyHandler {
	return &currencyHandler{
		currencyService:    cs,
		revaluationService: rs,
	}
}

func registerCurrencyRoutes(rg *gin.RouterGroup, currencyService portssvc.CurrencySvcFacade, revaluationService portssvc.RevaluationSvc) {
	h := newCurrencyHandler(currencyService, revaluationService)

	policies := rg.Group("/currency-policies")
	{
		policies.POST("", h.createPolicy)
		policies.GET("", h.listPolicies)
		policies.GET("/status", h.policyStatus)
		policies.POST("/:id/activate", h.activatePolicy)
	}

	currency := rg.Group("/currency")
	{
		currency.POST("/convert", h.convert)
		currency.POST("/revaluations", h.revalue)
	}
}

// createPolicy godoc
// @Summary Create a currency policy
// @Description Creates an inactive policy. NORMALIZATION requires POSTING timing, UNIT_OF_MEASURE cannot convert at POSTING and only VALUED_ASSET may enable revaluation.
// @Tags currency
// @Accept  json
// @Produce  json
// @Param   policy body dto.CreateCurrencyPolicyRequest true "Policy"
// @Success 201 {object} Envelope{data=domain.CurrencyPolicy}
// @Failure 400 {object} Envelope "Policy invariant violated"
// @Failure 403 {object} Envelope "Missing currency.manage"
// @Security BearerAuth
// @Router /currency-policies [post]
func (h *currencyHandler) createPolicy(c *gin.Context) {
	var req dto.CreateCurrencyPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	policy, err := h.currencyService.CreatePolicy(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to create currency policy")
		return
	}
	respond(c, http.StatusCreated, policy)
}

// listPolicies godoc
// @Summary List currency policies
// @Tags currency
// @Produce  json
// @Success 200 {object} Envelope{data=[]domain.CurrencyPolicy}
// @Security BearerAuth
// @Router /currency-policies [get]
func (h *currencyHandler) listPolicies(c *gin.Context) {
	policies, err := h.currencyService.ListPolicies(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list currency policies")
		return
	}
	respond(c, http.StatusOK, policies)
}

// activatePolicy godoc
// @Summary Activate a currency policy
// @Description Deactivates every other policy in the same transaction.
// @Tags currency
// @Produce  json
// @Param   id path string true "Policy ID"
// @Success 200 {object} Envelope{data=domain.CurrencyPolicy}
// @Failure 404 {object} Envelope "Policy not found"
// @Security BearerAuth
// @Router /currency-policies/{id}/activate [post]
func (h *currencyHandler) activatePolicy(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	policy, err := h.currencyService.ActivatePolicy(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to activate currency policy")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Currency policy activated", slog.String("policy_id", policy.PolicyID))
	respond(c, http.StatusOK, policy)
}

// policyStatus godoc
// @Summary Active currency policy status
// @Tags currency
// @Produce  json
// @Success 200 {object} Envelope{data=dto.CurrencyPolicyStatus}
// @Security BearerAuth
// @Router /currency-policies/status [get]
func (h *currencyHandler) policyStatus(c *gin.Context) {
	status, err := h.currencyService.PolicyStatus(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to report currency policy status")
		return
	}
	respond(c, http.StatusOK, status)
}

// convert godoc
// @Summary Preview a conversion
// @Description Returns the conversion decision the active policy makes for the request, and the converted amount.
// @Tags currency
// @Accept  json
// @Produce  json
// @Param   request body dto.ConvertRequest true "Conversion request"
// @Success 200 {object} Envelope{data=dto.ConversionResult}
// @Failure 400 {object} Envelope "Missing exchange rate"
// @Security BearerAuth
// @Router /currency/convert [post]
func (h *currencyHandler) convert(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := h.currencyService.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to preview conversion")
		return
	}
	respond(c, http.StatusOK, result)
}

// revalue godoc
// @Summary Revalue foreign currency balances
// @Description Posts unrealized exchange gains and losses for every account holding the currency. Requires an active VALUED_ASSET policy with revaluation enabled.
// @Tags currency
// @Accept  json
// @Produce  json
// @Param   request body dto.RevaluationRequest true "Revaluation"
// @Success 201 {object} Envelope{data=dto.RevaluationResult}
// @Failure 400 {object} Envelope "Revaluation not enabled, or the period is closed"
// @Failure 403 {object} Envelope "Missing currency.manage"
// @Security BearerAuth
// @Router /currency/revaluations [post]
func (h *currencyHandler) revalue(c *gin.Context) {
	var req dto.RevaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	result, err := h.revaluationService.Revalue(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to revalue balances")
		return
	}
	respond(c, http.StatusCreated, result)
}

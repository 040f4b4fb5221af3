package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to the chart of accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	now            func() time.Time
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{
		accountService: as,
		now:            time.Now,
	}
}

// registerAccountRoutes registers routes related to accounts and ledger reports.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:code", h.getAccount)
		accounts.GET("/:code/balance", h.getAccountBalance)
		accounts.DELETE("/:code", h.deactivateAccount)
	}
	rg.GET("/reports/trial-balance", h.getTrialBalance)
}

// createAccount godoc
// @Summary Create an account
// @Description Adds an account to the chart of accounts. A parent must exist, be active and share the account type.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} Envelope{data=dto.AccountResponse}
// @Failure 400 {object} Envelope "Invalid input or parent mismatch"
// @Failure 403 {object} Envelope "Missing accounts.manage"
// @Failure 409 {object} Envelope "Account code already exists"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to create account")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Account created", slog.String("account_code", account.Code))
	respond(c, http.StatusCreated, dto.ToAccountResponse(*account, h.accountService.IsPostable(*account)))
}

// listAccounts godoc
// @Summary List accounts
// @Tags accounts
// @Produce  json
// @Param   includeInactive query bool false "Include deactivated accounts"
// @Success 200 {object} Envelope{data=dto.ListAccountsResponse}
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), params.IncludeInactive)
	if err != nil {
		respondError(c, err, "Failed to list accounts")
		return
	}

	resp := dto.ListAccountsResponse{Accounts: make([]dto.AccountResponse, len(accounts))}
	for i, a := range accounts {
		resp.Accounts[i] = dto.ToAccountResponse(a, h.accountService.IsPostable(a))
	}
	respond(c, http.StatusOK, resp)
}

// getAccount godoc
// @Summary Get an account by code
// @Tags accounts
// @Produce  json
// @Param   code path string true "Account code"
// @Success 200 {object} Envelope{data=dto.AccountResponse}
// @Failure 404 {object} Envelope "Account not found"
// @Security BearerAuth
// @Router /accounts/{code} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, "Failed to get account")
		return
	}
	respond(c, http.StatusOK, dto.ToAccountResponse(*account, h.accountService.IsPostable(*account)))
}

// getAccountBalance godoc
// @Summary Get an account balance
// @Description Sums posted lines up to and including asOf, in the account's normal sign.
// @Tags accounts
// @Produce  json
// @Param   code path string true "Account code"
// @Param   asOf query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} Envelope{data=dto.AccountBalanceResponse}
// @Failure 404 {object} Envelope "Account not found"
// @Security BearerAuth
// @Router /accounts/{code}/balance [get]
func (h *accountHandler) getAccountBalance(c *gin.Context) {
	var params dto.AsOfParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	balance, err := h.accountService.GetAccountBalance(c.Request.Context(), c.Param("code"), params.AsOfDate(h.now()))
	if err != nil {
		respondError(c, err, "Failed to get account balance")
		return
	}
	respond(c, http.StatusOK, balance)
}

// deactivateAccount godoc
// @Summary Deactivate an account
// @Description Accounts are never deleted; a deactivated account no longer accepts postings.
// @Tags accounts
// @Produce  json
// @Param   code path string true "Account code"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope "Missing accounts.manage"
// @Failure 404 {object} Envelope "Account not found"
// @Security BearerAuth
// @Router /accounts/{code} [delete]
func (h *accountHandler) deactivateAccount(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if err := h.accountService.DeactivateAccount(c.Request.Context(), actor, c.Param("code")); err != nil {
		respondError(c, err, "Failed to deactivate account")
		return
	}
	respond(c, http.StatusOK, nil)
}

// getTrialBalance godoc
// @Summary Trial balance
// @Description Lists every account with a nonzero balance on its natural side as of a date.
// @Tags reports
// @Produce  json
// @Param   asOf query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} Envelope{data=domain.TrialBalance}
// @Security BearerAuth
// @Router /reports/trial-balance [get]
func (h *accountHandler) getTrialBalance(c *gin.Context) {
	var params dto.AsOfParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	tb, err := h.accountService.GetTrialBalance(c.Request.Context(), params.AsOfDate(h.now()))
	if err != nil {
		respondError(c, err, "Failed to build trial balance")
		return
	}
	respond(c, http.StatusOK, tb)
}

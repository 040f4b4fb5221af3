package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// apiTokenHandler manages the keys integration clients authenticate with.
type apiTokenHandler struct {
	tokenSvc portssvc.APITokenSvcFacade
}

func registerAPITokenRoutes(rg *gin.RouterGroup, tokenSvc portssvc.APITokenSvcFacade) {
	h := &apiTokenHandler{tokenSvc: tokenSvc}

	tokens := rg.Group("/api-tokens")
	{
		tokens.POST("", h.createToken)
		tokens.GET("", h.listTokens)
		tokens.DELETE("/:id", h.revokeToken)
	}
}

// createToken godoc
// @Summary Create an API token
// @Description Issues a key for an integration client. The secret is returned only once; send it in the x-api-key header.
// @Tags api-tokens
// @Accept  json
// @Produce  json
// @Param   request body dto.CreateAPITokenRequest true "Token details"
// @Success 201 {object} Envelope{data=dto.CreateAPITokenResponse}
// @Failure 403 {object} Envelope "Missing api_tokens.manage"
// @Security BearerAuth
// @Router /api-tokens [post]
func (h *apiTokenHandler) createToken(c *gin.Context) {
	var req dto.CreateAPITokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	resp, err := h.tokenSvc.CreateToken(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to create api token")
		return
	}
	respond(c, http.StatusCreated, resp)
}

// listTokens godoc
// @Summary List API tokens
// @Description Returns token metadata only.
// @Tags api-tokens
// @Produce  json
// @Success 200 {object} Envelope{data=[]domain.APIToken}
// @Security BearerAuth
// @Router /api-tokens [get]
func (h *apiTokenHandler) listTokens(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	tokens, err := h.tokenSvc.ListTokens(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to list api tokens")
		return
	}
	respond(c, http.StatusOK, tokens)
}

// revokeToken godoc
// @Summary Revoke an API token
// @Tags api-tokens
// @Produce  json
// @Param   id path string true "Token ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope "Token not found or already revoked"
// @Security BearerAuth
// @Router /api-tokens/{id} [delete]
func (h *apiTokenHandler) revokeToken(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if err := h.tokenSvc.RevokeToken(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err, "Failed to revoke api token")
		return
	}
	respond(c, http.StatusOK, nil)
}

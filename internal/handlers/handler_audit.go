package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

type auditHandler struct {
	auditService portssvc.AuditReaderSvc
}

func registerAuditRoutes(rg *gin.RouterGroup, auditService portssvc.AuditReaderSvc) {
	h := &auditHandler{auditService: auditService}
	rg.GET("/audit-logs", h.listAuditLogs)
}

// listAuditLogs godoc
// @Summary List audit entries
// @Description Newest first, cursor paginated. Sensitive metadata is stored redacted.
// @Tags audit
// @Produce  json
// @Param   module query string false "Filter by module"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Cursor from the previous page"
// @Success 200 {object} Envelope{data=dto.ListAuditLogsResponse}
// @Failure 403 {object} Envelope "Missing audit.view"
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *auditHandler) listAuditLogs(c *gin.Context) {
	var params dto.ListAuditLogsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	resp, err := h.auditService.ListAuditEntries(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, err, "Failed to list audit entries")
		return
	}
	respond(c, http.StatusOK, resp)
}

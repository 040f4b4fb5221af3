package handlers

import (
	"net/http"

	"github.com/SscSPs/erp_ledger/cmd/docs"
	"github.com/SscSPs/erp_ledger/internal/authz"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes. middlewares run on the /api/v1 group
// in order, after authentication.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	policy *authz.Policy,
	authMiddlewares []gin.HandlerFunc,
	middlewares ...gin.HandlerFunc,
) {
	RegisterValidators()

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	v1 := r.Group("/api/v1")
	v1.Use(authMiddlewares...)
	v1.Use(middlewares...)
	registerAPIV1Routes(v1, services, policy)

	setupSwaggerRoutes(r, cfg)
}

func registerAPIV1Routes(v1 *gin.RouterGroup, services *portssvc.ServiceContainer, policy *authz.Policy) {
	registerAccountRoutes(v1, services.Account)
	registerFiscalPeriodRoutes(v1, services.FiscalPeriod)
	registerJournalRoutes(v1, services.Journal, policy)
	registerCurrencyRoutes(v1, services.Currency, services.Revaluation)
	registerExchangeRateRoutes(v1, services.ExchangeRate)
	registerDocumentRoutes(v1, services.Document)
	registerAuditRoutes(v1, services.Audit)
	registerAPITokenRoutes(v1, services.APIToken)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

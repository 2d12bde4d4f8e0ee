package routing

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
	"github.com/vinumavintel/ums-with-admin-ui/internal/handlers"
	"github.com/vinumavintel/ums-with-admin-ui/internal/metrics"
	"github.com/vinumavintel/ums-with-admin-ui/internal/middleware"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

type APIRouter struct {
	guard    *middleware.Guard
	verifier middleware.TokenVerifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewAPIRouter(guard *middleware.Guard, verifier middleware.TokenVerifier, m *metrics.Metrics, logger *zap.Logger) *APIRouter {
	return &APIRouter{
		guard:    guard,
		verifier: verifier,
		metrics:  m,
		logger:   logger,
	}
}

// SetupRoutes wires the whole HTTP surface. Requirements follow the role
// model: platform authority for app management, platform or app-scoped admin
// for everything inside one application.
func (r *APIRouter) SetupRoutes(router *gin.Engine, h *handlers.Container) {
	router.GET(constants.PathHealth, h.Health.Health)
	router.GET(constants.PathHealthKeycloak, h.Health.Keycloak)
	router.GET(constants.PathVersion, h.Health.Version)
	router.GET(constants.PathMetrics, r.metrics.Handler())
	router.GET(constants.PathSwagger, ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group(constants.APIBasePath)
	v1.Use(middleware.Authentication(r.verifier, r.logger))

	platform := middleware.RequirePlatform()
	appAdmin := middleware.RequirePlatformOrApp(models.RoleTierAdmin)
	appAdminOrSuper := middleware.RequirePlatformOrApp(models.RoleTierAdmin, models.RoleTierSuperAdmin)

	v1.POST(constants.PathApps, r.guard.Require(platform), h.App.Create)
	v1.GET(constants.PathApps, r.guard.Require(platform), h.App.List)
	v1.GET(constants.PathAppsID, r.guard.Require(platform), h.App.Get)
	v1.DELETE(constants.PathAppsID, r.guard.Require(platform), h.App.Delete)

	v1.GET(constants.PathAppUsers, r.guard.Require(appAdmin), h.User.List)
	v1.POST(constants.PathAppUsers, r.guard.Require(appAdmin), h.User.Create)
	v1.POST(constants.PathAppUserRoles, r.guard.Require(appAdmin), h.User.ChangeRole)
	v1.POST(constants.PathAppUserResetPass, r.guard.Require(appAdminOrSuper), h.User.ResetPassword)

	v1.GET(constants.PathMe, r.guard.Require(middleware.RequireAuthenticated()), h.Auth.Me)
	v1.GET(constants.PathAudit, r.guard.Require(appAdmin), h.Audit.List)
}

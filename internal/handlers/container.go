package handlers

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vinumavintel/ums-with-admin-ui/internal/services"
)

type Container struct {
	Health *HealthHandler
	Auth   *AuthHandler
	App    *AppHandler
	User   *UserHandler
	Audit  *AuditHandler
}

func NewContainer(db *gorm.DB, svc *services.Container, pinger KeycloakPinger, cache CacheInvalidator, logger *zap.Logger, version string) *Container {
	return &Container{
		Health: NewHealthHandler(db, pinger, logger, version),
		Auth:   NewAuthHandler(logger),
		App:    NewAppHandler(svc.App, svc.User, cache, logger),
		User:   NewUserHandler(svc.User, svc.User, logger),
		Audit:  NewAuditHandler(svc.Audit, svc.App, logger),
	}
}

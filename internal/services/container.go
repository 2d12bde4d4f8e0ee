package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	App   *AppService
	User  *UserService
	Audit *AuditService
}

func NewContainer(db *gorm.DB, gateway IdentityGateway, logger *zap.Logger) *Container {
	audit := NewAuditService(db, logger)

	return &Container{
		App:   NewAppService(db, gateway, audit, logger),
		User:  NewUserService(db, gateway, audit, logger),
		Audit: audit,
	}
}

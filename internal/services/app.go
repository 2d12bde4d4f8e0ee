package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vinumavintel/ums-with-admin-ui/internal/apperr"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

type AppService struct {
	db      *gorm.DB
	gateway IdentityGateway
	audit   *AuditService
	logger  *zap.Logger
}

func NewAppService(db *gorm.DB, gateway IdentityGateway, audit *AuditService, logger *zap.Logger) *AppService {
	return &AppService{
		db:      db,
		gateway: gateway,
		audit:   audit,
		logger:  logger,
	}
}

// Create provisions the Keycloak client and its four role tiers first, then
// inserts the local record. The local insert is the linearization point for
// name uniqueness: losing the race means Conflict here, leaving the external
// client orphaned but harmless.
func (s *AppService) Create(ctx context.Context, req *models.CreateApplicationRequest, actorID *uuid.UUID) (*models.Application, error) {
	clientID := models.DeriveClientID(req.Name)
	if clientID == "" {
		return nil, apperr.Invalid("name must contain at least one alphanumeric character")
	}

	var existing models.Application
	err := s.db.WithContext(ctx).Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict(fmt.Sprintf("application %q already exists", req.Name))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unavailable("failed to check application name", err)
	}

	// First external mutation: from here the workflow runs to completion
	// even if the caller disconnects.
	ctx = context.WithoutCancel(ctx)

	if _, err := s.gateway.EnsureClientWithRoles(ctx, clientID); err != nil {
		return nil, err
	}

	app := &models.Application{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ClientID:    clientID,
	}

	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The external client stays provisioned; a retry under the
			// same name will adopt it via the ensure step.
			return nil, apperr.Conflict(fmt.Sprintf("application %q already exists", req.Name))
		}
		return nil, apperr.Unavailable("failed to store application", err)
	}

	s.audit.Record(ctx, &models.AuditLog{
		ActorID:       actorID,
		ApplicationID: &app.ID,
		Action:        models.AuditActions.AppCreate,
		Details: models.AuditDetails{
			"appId":    app.ID.String(),
			"name":     app.Name,
			"clientId": app.ClientID,
		},
	})

	s.logger.Info("Application created",
		zap.String("app_id", app.ID.String()),
		zap.String("client_id", app.ClientID))

	return app, nil
}

func (s *AppService) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, apperr.Unavailable("failed to load application", err)
	}
	return &app, nil
}

// List returns applications matching q, newest first.
func (s *AppService) List(ctx context.Context, q string, page, limit int) (*models.ApplicationListResponse, error) {
	query := s.db.WithContext(ctx).Model(&models.Application{})

	if q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Unavailable("failed to count applications", err)
	}

	var apps []models.Application
	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return nil, apperr.Unavailable("failed to list applications", err)
	}

	items := make([]models.ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, *apps[i].ToResponse())
	}

	return &models.ApplicationListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// Delete removes the local record only when no role assignments reference
// it. The Keycloak client is left in place: accounts and mappings on the
// identity provider outlive local registration.
func (s *AppService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	app, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var assignments int64
	if err := s.db.WithContext(ctx).Model(&models.UserAppRole{}).Where("application_id = ?", id).Count(&assignments).Error; err != nil {
		return apperr.Unavailable("failed to count role assignments", err)
	}
	if assignments > 0 {
		return apperr.Conflict("application still has user role assignments")
	}

	if err := s.db.WithContext(ctx).Delete(&models.Application{}, "id = ?", id).Error; err != nil {
		return apperr.Unavailable("failed to delete application", err)
	}

	s.audit.Record(ctx, &models.AuditLog{
		ActorID:       actorID,
		ApplicationID: &app.ID,
		Action:        models.AuditActions.AppDelete,
		Details: models.AuditDetails{
			"appId":    app.ID.String(),
			"name":     app.Name,
			"clientId": app.ClientID,
		},
	})

	s.logger.Info("Application deleted",
		zap.String("app_id", id.String()),
		zap.String("client_id", app.ClientID))

	return nil
}

// ResolveClientID implements the guard's directory lookup. Any unparseable
// or unknown id is NotFound; the guard turns that into Forbidden.
func (s *AppService) ResolveClientID(ctx context.Context, appID string) (string, error) {
	id, err := uuid.Parse(appID)
	if err != nil {
		return "", apperr.NotFound("application not found")
	}

	var app models.Application
	if err := s.db.WithContext(ctx).Select("client_id").First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("application not found")
		}
		return "", apperr.Unavailable("failed to resolve application", err)
	}

	return app.ClientID, nil
}

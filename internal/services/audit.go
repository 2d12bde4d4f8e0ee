package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vinumavintel/ums-with-admin-ui/internal/apperr"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	return &AuditService{db: db, logger: logger}
}

// Record appends one audit entry. Failures are logged and swallowed: the
// workflow that produced the entry has already completed against both
// systems, so a lost audit row must not turn it into an error.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("Failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

type AuditQuery struct {
	ApplicationID *uuid.UUID

	// UserID matches entries the user initiated as well as entries that
	// targeted them.
	UserID *uuid.UUID

	Action string
	Page   int
	Limit  int
}

// List returns audit entries newest first, with actor and target emails
// joined in from the user table.
func (s *AuditService) List(ctx context.Context, q AuditQuery) (*models.AuditListResponse, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if q.ApplicationID != nil {
		query = query.Where("application_id = ?", *q.ApplicationID)
	}
	if q.UserID != nil {
		query = query.Where("(actor_id = ? OR target_user_id = ?)", *q.UserID, *q.UserID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Unavailable("failed to count audit entries", err)
	}

	var logs []models.AuditLog
	offset := (q.Page - 1) * q.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&logs).Error; err != nil {
		return nil, apperr.Unavailable("failed to list audit entries", err)
	}

	emails, err := s.resolveEmails(ctx, logs)
	if err != nil {
		return nil, err
	}

	data := make([]models.AuditLogResponse, 0, len(logs))
	for i := range logs {
		resp := logs[i].ToResponse()
		if resp.ActorID != nil {
			resp.ActorEmail = emails[*resp.ActorID]
		}
		if resp.TargetUserID != nil {
			resp.TargetEmail = emails[*resp.TargetUserID]
		}
		data = append(data, *resp)
	}

	return &models.AuditListResponse{
		Data:  data,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

func (s *AuditService) resolveEmails(ctx context.Context, logs []models.AuditLog) (map[uuid.UUID]string, error) {
	idSet := make(map[uuid.UUID]struct{})
	for i := range logs {
		if logs[i].ActorID != nil {
			idSet[*logs[i].ActorID] = struct{}{}
		}
		if logs[i].TargetUserID != nil {
			idSet[*logs[i].TargetUserID] = struct{}{}
		}
	}

	emails := make(map[uuid.UUID]string, len(idSet))
	if len(idSet) == 0 {
		return emails, nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Unavailable("failed to resolve audit emails", err)
	}

	for i := range users {
		emails[users[i].ID] = users[i].Email
	}

	return emails, nil
}

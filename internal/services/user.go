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

type UserService struct {
	db      *gorm.DB
	gateway IdentityGateway
	audit   *AuditService
	logger  *zap.Logger
}

func NewUserService(db *gorm.DB, gateway IdentityGateway, audit *AuditService, logger *zap.Logger) *UserService {
	return &UserService{
		db:      db,
		gateway: gateway,
		audit:   audit,
		logger:  logger,
	}
}

// Create provisions a user into an application: find-or-create the account
// (Keycloak first, local mirror second), map the client role externally,
// then upsert the local assignment. Re-running the whole workflow is safe;
// every step treats "already there" as success.
func (s *UserService) Create(ctx context.Context, appID uuid.UUID, req *models.CreateUserRequest, actorID *uuid.UUID) (*models.UserWithRoles, error) {
	tier, err := models.ParseRoleTier(req.Role)
	if err != nil {
		return nil, apperr.Invalid(err.Error())
	}

	app, err := s.getApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	// External mutations start here; run to completion on disconnect.
	ctx = context.WithoutCancel(ctx)

	user, err := s.findOrCreateUser(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.AssignClientRole(ctx, user.KeycloakID, app.ClientID, tier); err != nil {
		return nil, err
	}

	if err := s.upsertAssignment(ctx, user.ID, app.ID, tier, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &models.AuditLog{
		ActorID:       actorID,
		TargetUserID:  &user.ID,
		ApplicationID: &app.ID,
		Action:        models.AuditActions.UserCreate,
		Details: models.AuditDetails{
			"appId": app.ID.String(),
			"email": user.Email,
			"role":  tier.String(),
		},
	})

	roles, err := s.roleSet(ctx, user.ID, app.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User provisioned into application",
		zap.String("app_id", app.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", tier.String()))

	return user.ToResponseWithRoles(roles), nil
}

// ChangeRole adds or removes one role tier. External mapping changes first,
// the local row follows.
func (s *UserService) ChangeRole(ctx context.Context, appID, userID uuid.UUID, req *models.ChangeRoleRequest, actorID *uuid.UUID) (*models.UserWithRoles, error) {
	tier, err := models.ParseRoleTier(req.Role)
	if err != nil {
		return nil, apperr.Invalid(err.Error())
	}

	app, err := s.getApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	var action string
	switch req.Op {
	case "add":
		action = models.AuditActions.RoleAdd
		if err := s.gateway.AssignClientRole(ctx, user.KeycloakID, app.ClientID, tier); err != nil {
			return nil, err
		}
		if err := s.upsertAssignment(ctx, user.ID, app.ID, tier, actorID); err != nil {
			return nil, err
		}
	case "remove":
		action = models.AuditActions.RoleRemove
		if err := s.gateway.RemoveClientRole(ctx, user.KeycloakID, app.ClientID, tier); err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND application_id = ? AND role = ?", user.ID, app.ID, tier).
			Delete(&models.UserAppRole{}).Error; err != nil {
			return nil, apperr.Unavailable("failed to delete role assignment", err)
		}
	default:
		return nil, apperr.Invalid(fmt.Sprintf("unknown op %q", req.Op))
	}

	s.audit.Record(ctx, &models.AuditLog{
		ActorID:       actorID,
		TargetUserID:  &user.ID,
		ApplicationID: &app.ID,
		Action:        action,
		Details: models.AuditDetails{
			"appId": app.ID.String(),
			"email": user.Email,
			"role":  tier.String(),
		},
	})

	roles, err := s.roleSet(ctx, user.ID, app.ID)
	if err != nil {
		return nil, err
	}

	return user.ToResponseWithRoles(roles), nil
}

// ResetPassword queues the update-password email, branded to the
// application's client. Fire-and-forget past that point.
func (s *UserService) ResetPassword(ctx context.Context, appID, userID uuid.UUID, actorID *uuid.UUID) error {
	app, err := s.getApp(ctx, appID)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)

	if err := s.gateway.SendPasswordReset(ctx, user.KeycloakID, app.ClientID); err != nil {
		return err
	}

	s.audit.Record(ctx, &models.AuditLog{
		ActorID:       actorID,
		TargetUserID:  &user.ID,
		ApplicationID: &app.ID,
		Action:        models.AuditActions.ResetPassword,
		Details: models.AuditDetails{
			"appId": app.ID.String(),
			"email": user.Email,
		},
	})

	return nil
}

// List returns one record per distinct user of the application with the
// folded role set. Because a user may hold several roles, the page window is
// computed over distinct user ids first; role rows are then fetched for
// exactly that id set and folded, preserving the paginated order.
func (s *UserService) List(ctx context.Context, appID uuid.UUID, q, roleFilter string, page, limit int) (*models.UserListResponse, error) {
	if _, err := s.getApp(ctx, appID); err != nil {
		return nil, err
	}

	if roleFilter != "" {
		if _, err := models.ParseRoleTier(roleFilter); err != nil {
			return nil, apperr.Invalid(err.Error())
		}
	}

	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Table("user_app_roles").
			Joins("JOIN users ON users.id = user_app_roles.user_id").
			Where("user_app_roles.application_id = ?", appID)

		if roleFilter != "" {
			query = query.Where("user_app_roles.role = ?", roleFilter)
		}
		if q != "" {
			pattern := "%" + strings.ToLower(q) + "%"
			query = query.Where(
				"(LOWER(users.email) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?)",
				pattern, pattern, pattern,
			)
		}
		return query
	}

	var total int64
	if err := filtered().Distinct("user_app_roles.user_id").Count(&total).Error; err != nil {
		return nil, apperr.Unavailable("failed to count users", err)
	}

	var pageIDs []uuid.UUID
	offset := (page - 1) * limit
	if err := filtered().
		Group("user_app_roles.user_id").
		Order("MIN(users.email)").
		Offset(offset).
		Limit(limit).
		Pluck("user_app_roles.user_id", &pageIDs).Error; err != nil {
		return nil, apperr.Unavailable("failed to page users", err)
	}

	items := make([]models.UserWithRoles, 0, len(pageIDs))
	if len(pageIDs) == 0 {
		return &models.UserListResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
	}

	type roleRow struct {
		UserID uuid.UUID
		Role   models.RoleTier
	}
	var rows []roleRow
	if err := filtered().
		Select("user_app_roles.user_id, user_app_roles.role").
		Where("user_app_roles.user_id IN ?", pageIDs).
		Order("user_app_roles.created_at").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Unavailable("failed to load role rows", err)
	}

	rolesByUser := make(map[uuid.UUID][]models.RoleTier, len(pageIDs))
	for _, row := range rows {
		rolesByUser[row.UserID] = append(rolesByUser[row.UserID], row.Role)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", pageIDs).Find(&users).Error; err != nil {
		return nil, apperr.Unavailable("failed to load users", err)
	}
	userByID := make(map[uuid.UUID]*models.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}

	// Role-row fetch order is arbitrary; restore the paginated id order.
	for _, id := range pageIDs {
		user, ok := userByID[id]
		if !ok {
			continue
		}
		items = append(items, *user.ToResponseWithRoles(rolesByUser[id]))
	}

	return &models.UserListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// ResolveActorID maps the caller's token email to a local user id so audit
// entries can name the actor. Nil when the caller has no local record;
// system accounts legitimately do not.
func (s *UserService) ResolveActorID(ctx context.Context, email string) *uuid.UUID {
	if email == "" {
		return nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id").Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil
	}

	return &user.ID
}

func (s *UserService) getApp(ctx context.Context, appID uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", appID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, apperr.Unavailable("failed to load application", err)
	}
	return &app, nil
}

func (s *UserService) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Unavailable("failed to load user", err)
	}
	return &user, nil
}

// findOrCreateUser resolves the local record for an email, creating the
// Keycloak account when none exists. The local insert follows the external
// create so the mirror never references a missing subject. An email already
// taken upstream but unknown locally propagates as Conflict; such accounts
// were not provisioned through this API and are not silently adopted.
func (s *UserService) findOrCreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unavailable("failed to look up user", err)
	}

	subjectID, err := s.gateway.CreateUser(ctx, email, req.FirstName, req.LastName, req.TempPassword)
	if err != nil {
		return nil, err
	}

	user = models.User{
		KeycloakID: subjectID,
		Email:      email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a concurrent create of the same email; adopt the row.
			var raced models.User
			if err := s.db.WithContext(ctx).Where("email = ?", email).First(&raced).Error; err != nil {
				return nil, apperr.Unavailable("failed to load user after conflict", err)
			}
			return &raced, nil
		}
		return nil, apperr.Unavailable("failed to store user", err)
	}

	return &user, nil
}

// upsertAssignment inserts the role row, treating a duplicate as success.
func (s *UserService) upsertAssignment(ctx context.Context, userID, appID uuid.UUID, tier models.RoleTier, grantedBy *uuid.UUID) error {
	assignment := &models.UserAppRole{
		UserID:        userID,
		ApplicationID: appID,
		Role:          tier,
		GrantedBy:     grantedBy,
	}

	if err := s.db.WithContext(ctx).Create(assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return apperr.Unavailable("failed to store role assignment", err)
	}

	return nil
}

func (s *UserService) roleSet(ctx context.Context, userID, appID uuid.UUID) ([]models.RoleTier, error) {
	var roles []models.RoleTier
	if err := s.db.WithContext(ctx).Model(&models.UserAppRole{}).
		Where("user_id = ? AND application_id = ?", userID, appID).
		Order("created_at").
		Pluck("role", &roles).Error; err != nil {
		return nil, apperr.Unavailable("failed to load role set", err)
	}
	return roles, nil
}

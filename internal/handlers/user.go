package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
	"github.com/vinumavintel/ums-with-admin-ui/internal/middleware"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
	"github.com/vinumavintel/ums-with-admin-ui/internal/utils"
)

type UserService interface {
	Create(ctx context.Context, appID uuid.UUID, req *models.CreateUserRequest, actorID *uuid.UUID) (*models.UserWithRoles, error)
	ChangeRole(ctx context.Context, appID, userID uuid.UUID, req *models.ChangeRoleRequest, actorID *uuid.UUID) (*models.UserWithRoles, error)
	ResetPassword(ctx context.Context, appID, userID uuid.UUID, actorID *uuid.UUID) error
	List(ctx context.Context, appID uuid.UUID, q, roleFilter string, page, limit int) (*models.UserListResponse, error)
}

// ActorResolver turns the caller's token email into a local user id for
// audit attribution.
type ActorResolver interface {
	ResolveActorID(ctx context.Context, email string) *uuid.UUID
}

type UserHandler struct {
	users     UserService
	actors    ActorResolver
	logger    *zap.Logger
	validator *validator.Validate
}

func NewUserHandler(users UserService, actors ActorResolver, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		actors:    actors,
		logger:    logger,
		validator: validator.New(),
	}
}

// @Summary List application users
// @Description One record per distinct user with the folded role set
// @Tags users
// @Produce json
// @Param appId path string true "Application ID"
// @Param q query string false "Email or name substring"
// @Param role query string false "Filter by role tier"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Security BearerAuth
// @Success 200 {object} models.UserListResponse
// @Router /apps/{appId}/users [get]
func (h *UserHandler) List(c *gin.Context) {
	appID, ok := parseUUIDParam(c, constants.ParamAppID)
	if !ok {
		return
	}

	page, limit := utils.ParsePagination(c)

	resp, err := h.users.List(c.Request.Context(), appID, c.Query("q"), c.Query("role"), page, limit)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Provision user into application
// @Description Create or attach the user and grant the requested role
// @Tags users
// @Accept json
// @Produce json
// @Param appId path string true "Application ID"
// @Param request body models.CreateUserRequest true "User"
// @Security BearerAuth
// @Success 201 {object} models.UserWithRoles
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /apps/{appId}/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	appID, ok := parseUUIDParam(c, constants.ParamAppID)
	if !ok {
		return
	}

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed", utils.FormatValidationErrors(err))
		return
	}

	user, err := h.users.Create(c.Request.Context(), appID, &req, resolveActor(c, h.actors))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// @Summary Add or remove a role
// @Tags users
// @Accept json
// @Produce json
// @Param appId path string true "Application ID"
// @Param userId path string true "User ID"
// @Param request body models.ChangeRoleRequest true "Role change"
// @Security BearerAuth
// @Success 200 {object} models.UserWithRoles
// @Failure 404 {object} utils.ErrorResponse
// @Router /apps/{appId}/users/{userId}/roles [post]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	appID, ok := parseUUIDParam(c, constants.ParamAppID)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, constants.ParamUserID)
	if !ok {
		return
	}

	var req models.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed", utils.FormatValidationErrors(err))
		return
	}

	user, err := h.users.ChangeRole(c.Request.Context(), appID, userID, &req, resolveActor(c, h.actors))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Trigger password reset
// @Description Queue the update-password email, branded to this application
// @Tags users
// @Produce json
// @Param appId path string true "Application ID"
// @Param userId path string true "User ID"
// @Security BearerAuth
// @Success 202 {object} map[string]string
// @Failure 404 {object} utils.ErrorResponse
// @Router /apps/{appId}/users/{userId}/reset-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	appID, ok := parseUUIDParam(c, constants.ParamAppID)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, constants.ParamUserID)
	if !ok {
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), appID, userID, resolveActor(c, h.actors)); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func resolveActor(c *gin.Context, actors ActorResolver) *uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil || actors == nil {
		return nil
	}
	return actors.ResolveActorID(c.Request.Context(), claims.Email)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
	"github.com/vinumavintel/ums-with-admin-ui/internal/utils"
)

type AppService interface {
	Create(ctx context.Context, req *models.CreateApplicationRequest, actorID *uuid.UUID) (*models.Application, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Application, error)
	List(ctx context.Context, q string, page, limit int) (*models.ApplicationListResponse, error)
	Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error
}

// CacheInvalidator drops a cached app-to-client mapping after deletion.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, appID string)
}

type AppHandler struct {
	apps      AppService
	actors    ActorResolver
	cache     CacheInvalidator
	logger    *zap.Logger
	validator *validator.Validate
}

func NewAppHandler(apps AppService, actors ActorResolver, cache CacheInvalidator, logger *zap.Logger) *AppHandler {
	return &AppHandler{
		apps:      apps,
		actors:    actors,
		cache:     cache,
		logger:    logger,
		validator: validator.New(),
	}
}

// @Summary Register application
// @Description Register a tenant application and provision its Keycloak client with the four role tiers
// @Tags apps
// @Accept json
// @Produce json
// @Param request body models.CreateApplicationRequest true "Application"
// @Security BearerAuth
// @Success 201 {object} models.ApplicationResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /apps [post]
func (h *AppHandler) Create(c *gin.Context) {
	var req models.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed", utils.FormatValidationErrors(err))
		return
	}

	app, err := h.apps.Create(c.Request.Context(), &req, resolveActor(c, h.actors))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app.ToResponse())
}

// @Summary List applications
// @Tags apps
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param q query string false "Name or description substring"
// @Security BearerAuth
// @Success 200 {object} models.ApplicationListResponse
// @Router /apps [get]
func (h *AppHandler) List(c *gin.Context) {
	page, limit := utils.ParsePagination(c)

	resp, err := h.apps.List(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get application
// @Tags apps
// @Produce json
// @Param id path string true "Application ID"
// @Security BearerAuth
// @Success 200 {object} models.ApplicationResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /apps/{id} [get]
func (h *AppHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, constants.ParamID)
	if !ok {
		return
	}

	app, err := h.apps.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, app.ToResponse())
}

// @Summary Delete application
// @Description Remove an application with no remaining role assignments
// @Tags apps
// @Param id path string true "Application ID"
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /apps/{id} [delete]
func (h *AppHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, constants.ParamID)
	if !ok {
		return
	}

	if err := h.apps.Delete(c.Request.Context(), id, resolveActor(c, h.actors)); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context(), id.String())
	}

	c.Status(http.StatusNoContent)
}

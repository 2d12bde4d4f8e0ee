package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vinumavintel/ums-with-admin-ui/internal/database"
)

type HealthHandler struct {
	db      *gorm.DB
	pinger  KeycloakPinger
	logger  *zap.Logger
	version string
}

type KeycloakPinger interface {
	Ping(ctx context.Context) error
}

func NewHealthHandler(db *gorm.DB, pinger KeycloakPinger, logger *zap.Logger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		pinger:  pinger,
		logger:  logger,
		version: version,
	}
}

// @Summary Liveness and datastore health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	label := "ok"
	dbStatus := "ok"

	if err := database.HealthCheck(h.db); err != nil {
		h.logger.Warn("Database health check failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		label = "degraded"
		dbStatus = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":    label,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// @Summary Identity provider health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/keycloak [get]
func (h *HealthHandler) Keycloak(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.logger.Warn("Keycloak health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary API version
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.version})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/middleware"
	"github.com/vinumavintel/ums-with-admin-ui/internal/utils"
)

type AuthHandler struct {
	logger *zap.Logger
}

func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// @Summary Current caller identity
// @Description Token subject, email, and the role sets the guard evaluates
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		utils.RespondWithError(c, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	clientRoles := make(map[string][]string, len(claims.ResourceAccess))
	for client, access := range claims.ResourceAccess {
		clientRoles[client] = access.Roles
	}

	c.JSON(http.StatusOK, gin.H{
		"sub":          claims.Subject,
		"email":        claims.Email,
		"realm_roles":  claims.RealmAccess.Roles,
		"client_roles": clientRoles,
	})
}

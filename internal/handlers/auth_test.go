package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vinumavintel/ums-with-admin-ui/internal/auth"
	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
)

func TestMeRequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(zaptest.NewLogger(t))

	router := gin.New()
	router.GET("/me", handler.Me)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeReturnsCallerRoleSets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(zaptest.NewLogger(t))

	raw := []byte(`{
		"sub": "subject-1",
		"email": "caller@example.com",
		"realm_access": {"roles": ["platform-admin"]},
		"resource_access": {"billing": {"roles": ["admin"]}}
	}`)
	var claims auth.TokenClaims
	require.NoError(t, json.Unmarshal(raw, &claims))

	router := gin.New()
	router.GET("/me", func(c *gin.Context) {
		c.Set(constants.ContextKeyClaims, &claims)
	}, handler.Me)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sub         string              `json:"sub"`
		Email       string              `json:"email"`
		RealmRoles  []string            `json:"realm_roles"`
		ClientRoles map[string][]string `json:"client_roles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "subject-1", body.Sub)
	assert.Equal(t, "caller@example.com", body.Email)
	assert.Equal(t, []string{"platform-admin"}, body.RealmRoles)
	assert.Equal(t, []string{"admin"}, body.ClientRoles["billing"])
}

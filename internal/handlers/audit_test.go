package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vinumavintel/ums-with-admin-ui/internal/apperr"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
	"github.com/vinumavintel/ums-with-admin-ui/internal/services"
)

type mockAuditReader struct{ mock.Mock }

func (m *mockAuditReader) List(ctx context.Context, q services.AuditQuery) (*models.AuditListResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditListResponse), args.Error(1)
}

type mockAppService struct{ mock.Mock }

func (m *mockAppService) Create(ctx context.Context, req *models.CreateApplicationRequest, actorID *uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockAppService) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockAppService) List(ctx context.Context, q string, page, limit int) (*models.ApplicationListResponse, error) {
	args := m.Called(ctx, q, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationListResponse), args.Error(1)
}

func (m *mockAppService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	return m.Called(ctx, id, actorID).Error(0)
}

func newAuditRouter(t *testing.T, audit *mockAuditReader, apps *mockAppService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewAuditHandler(audit, apps, zaptest.NewLogger(t))
	router := gin.New()
	router.GET("/audit", handler.List)
	return router
}

func TestAuditListScopedToApplication(t *testing.T) {
	audit := new(mockAuditReader)
	apps := new(mockAppService)
	appID := uuid.New()

	apps.On("Get", mock.Anything, appID).Return(&models.Application{ID: appID, Name: "Billing"}, nil)
	audit.On("List", mock.Anything, mock.MatchedBy(func(q services.AuditQuery) bool {
		return q.ApplicationID != nil && *q.ApplicationID == appID && q.Page == 1 && q.Limit == 20
	})).Return(&models.AuditListResponse{Data: []models.AuditLogResponse{}, Total: 0, Page: 1, Limit: 20}, nil)

	w := httptest.NewRecorder()
	router := newAuditRouter(t, audit, apps)
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?appId="+appID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	audit.AssertExpectations(t)
}

// Unknown or malformed application scopes come back Forbidden, not NotFound,
// so the audit route leaks nothing the guard would hide.
func TestAuditListHidesUnknownScope(t *testing.T) {
	audit := new(mockAuditReader)
	apps := new(mockAppService)
	missing := uuid.New()
	apps.On("Get", mock.Anything, missing).Return(nil, apperr.NotFound("application not found"))

	router := newAuditRouter(t, audit, apps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?appId="+missing.String(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?appId=not-a-uuid", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	audit.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestAuditListRejectsBadUserID(t *testing.T) {
	audit := new(mockAuditReader)
	apps := new(mockAppService)

	router := newAuditRouter(t, audit, apps)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?userId=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vinumavintel/ums-with-admin-ui/internal/keycloak"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Application{},
		&models.User{},
		&models.UserAppRole{},
		&models.AuditLog{},
	))

	return db
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) EnsureClientWithRoles(ctx context.Context, clientID string) (*keycloak.ClientRepresentation, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keycloak.ClientRepresentation), args.Error(1)
}

func (m *MockGateway) FindClientByClientID(ctx context.Context, clientID string) (*keycloak.ClientRepresentation, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keycloak.ClientRepresentation), args.Error(1)
}

func (m *MockGateway) CreateUser(ctx context.Context, email, firstName, lastName, tempPassword string) (string, error) {
	args := m.Called(ctx, email, firstName, lastName, tempPassword)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) AssignClientRole(ctx context.Context, subjectID, clientID string, role models.RoleTier) error {
	args := m.Called(ctx, subjectID, clientID, role)
	return args.Error(0)
}

func (m *MockGateway) RemoveClientRole(ctx context.Context, subjectID, clientID string, role models.RoleTier) error {
	args := m.Called(ctx, subjectID, clientID, role)
	return args.Error(0)
}

func (m *MockGateway) SendPasswordReset(ctx context.Context, subjectID, brandingClientID string) error {
	args := m.Called(ctx, subjectID, brandingClientID)
	return args.Error(0)
}

func (m *MockGateway) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

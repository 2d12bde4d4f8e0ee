package services

import (
	"context"

	"github.com/vinumavintel/ums-with-admin-ui/internal/keycloak"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

// IdentityGateway is the slice of the Keycloak client the workflows consume.
// Declared here so the services can be tested against a mock gateway.
type IdentityGateway interface {
	EnsureClientWithRoles(ctx context.Context, clientID string) (*keycloak.ClientRepresentation, error)
	FindClientByClientID(ctx context.Context, clientID string) (*keycloak.ClientRepresentation, error)
	CreateUser(ctx context.Context, email, firstName, lastName, tempPassword string) (string, error)
	AssignClientRole(ctx context.Context, subjectID, clientID string, role models.RoleTier) error
	RemoveClientRole(ctx context.Context, subjectID, clientID string, role models.RoleTier) error
	SendPasswordReset(ctx context.Context, subjectID, brandingClientID string) error
	Ping(ctx context.Context) error
}

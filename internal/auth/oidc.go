// Package auth verifies bearer tokens against the Keycloak realm and exposes
// the claims the authorization guard evaluates.
package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
)

// TokenClaims is the subset of the access token the guard needs: the
// realm-wide role set and the per-client role sets.
type TokenClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`

	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`

	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// HasRealmRole reports whether the realm-wide role set contains role.
func (c *TokenClaims) HasRealmRole(role string) bool {
	for _, r := range c.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ClientRoles returns the caller's role set on one client, empty if the
// token carries no roles for it.
func (c *TokenClaims) ClientRoles(clientID string) []string {
	if access, ok := c.ResourceAccess[clientID]; ok {
		return access.Roles
	}
	return nil
}

func (c *TokenClaims) HasClientRole(clientID, role string) bool {
	for _, r := range c.ClientRoles(clientID) {
		if r == role {
			return true
		}
	}
	return false
}

// HasPlatformAuthority reports platform-level privilege: the platform-admin
// realm role, or an admin-grade role on the API's own client. The latter is
// the operational escape hatch for bootstrap accounts that only carry client
// roles.
func (c *TokenClaims) HasPlatformAuthority(apiClientID string) bool {
	if c.HasRealmRole(constants.RolePlatformAdmin) {
		return true
	}
	return c.HasClientRole(apiClientID, constants.RoleAdmin) ||
		c.HasClientRole(apiClientID, constants.RolePlatformAdmin)
}

type Verifier struct {
	verifier *oidc.IDTokenVerifier
	logger   *zap.Logger
}

// NewVerifier discovers the realm's OIDC configuration and builds an access
// token verifier. Audience enforcement is skipped because Keycloak access
// tokens carry the requesting client as azp, not this API, unless an
// audience mapper is configured.
func NewVerifier(ctx context.Context, issuerURL string, logger *zap.Logger) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	logger.Info("OIDC verifier initialized", zap.String("issuer", issuerURL))

	return &Verifier{verifier: verifier, logger: logger}, nil
}

// Verify checks signature, issuer, and expiry, and extracts the claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*TokenClaims, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	var claims TokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}

	return &claims, nil
}

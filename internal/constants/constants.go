package constants

import "time"

const (
	BearerTokenPrefix = "Bearer "
	TokenExpiryBuffer = 60 * time.Second

	DefaultTimeout    = 30 * time.Second
	HTTPClientTimeout = 30 * time.Second
	ShutdownTimeout   = 30 * time.Second

	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPage         = 1

	// Lifespan of the update-password action email, in seconds.
	PasswordResetLifespan = 3600

	// Keycloak allows longer client IDs, but 63 keeps the derived
	// identifier usable as a DNS label for downstream tooling.
	MaxClientIDLength = 63

	DefaultCacheTTL = 5 * time.Minute

	RolePlatformAdmin = "platform-admin"
	RoleSuperAdmin    = "super-admin"
	RoleAdmin         = "admin"
	RoleReadWrite     = "read-write"
	RoleReadOnly      = "read-only"

	ContextKeyRequestID = "request_id"
	ContextKeyClaims    = "token_claims"

	ParamAppID  = "appId"
	ParamID     = "id"
	ParamUserID = "userId"

	APIBasePath = "/v1"

	PathHealth         = "/health"
	PathHealthKeycloak = "/health/keycloak"
	PathVersion        = "/version"
	PathMetrics        = "/metrics"
	PathSwagger        = "/swagger/*any"

	PathApps             = "/apps"
	PathAppsID           = "/apps/:id"
	PathAppUsers         = "/apps/:appId/users"
	PathAppUserRoles     = "/apps/:appId/users/:userId/roles"
	PathAppUserResetPass = "/apps/:appId/users/:userId/reset-password"
	PathMe               = "/me"
	PathAudit            = "/audit"
)

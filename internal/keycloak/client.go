// Package keycloak is the single point of contact with the identity
// provider's admin REST API. Every remote failure is normalized into the
// apperr taxonomy before it leaves this package.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vinumavintel/ums-with-admin-ui/internal/apperr"
	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

type Client struct {
	baseURL string
	realm   string
	logger  *zap.Logger

	httpClient *http.Client

	ccConfig *clientcredentials.Config

	mu          sync.Mutex
	tokenSource oauth2.TokenSource
}

type ClientRepresentation struct {
	ID       string `json:"id,omitempty"`
	ClientID string `json:"clientId"`
	Name     string `json:"name,omitempty"`
	Enabled  bool   `json:"enabled"`
	Protocol string `json:"protocol,omitempty"`

	StandardFlowEnabled       bool `json:"standardFlowEnabled"`
	DirectAccessGrantsEnabled bool `json:"directAccessGrantsEnabled"`
	ServiceAccountsEnabled    bool `json:"serviceAccountsEnabled"`
	PublicClient              bool `json:"publicClient"`
}

type RoleRepresentation struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ClientRole  bool   `json:"clientRole,omitempty"`
}

type UserRepresentation struct {
	ID            string                     `json:"id,omitempty"`
	Username      string                     `json:"username"`
	Email         string                     `json:"email,omitempty"`
	FirstName     string                     `json:"firstName,omitempty"`
	LastName      string                     `json:"lastName,omitempty"`
	Enabled       bool                       `json:"enabled"`
	EmailVerified bool                       `json:"emailVerified"`
	Credentials   []CredentialRepresentation `json:"credentials,omitempty"`
}

type CredentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value,omitempty"`
	Temporary bool   `json:"temporary"`
}

func NewClient(baseURL, realm, clientID, clientSecret string, logger *zap.Logger) *Client {
	base := strings.TrimSuffix(baseURL, "/")

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", base, realm),
	}

	return &Client{
		baseURL:    base,
		realm:      realm,
		logger:     logger,
		httpClient: &http.Client{Timeout: constants.HTTPClientTimeout},
		ccConfig:   cc,
	}
}

func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	if c.tokenSource == nil {
		// Route the token POST through our own timeout-bounded client;
		// otherwise oauth2 falls back to http.DefaultClient, which has
		// none, and a stalled token endpoint hangs every gateway call.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.tokenSource = c.ccConfig.TokenSource(tokenCtx)
	}
	ts := c.tokenSource
	c.mu.Unlock()

	token, err := ts.Token()
	if err != nil {
		return nil, apperr.Unavailable("identity provider authentication failed", err)
	}
	return token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.tokenSource = nil
	c.mu.Unlock()
}

func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	return c.makeRequestWithRetry(ctx, method, path, body, false)
}

func (c *Client) makeRequestWithRetry(ctx context.Context, method, path string, body interface{}, isRetry bool) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/admin/realms/%s%s", c.baseURL, c.realm, path)

	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("identity provider unreachable", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !isRetry {
		resp.Body.Close()
		c.logger.Debug("Received 401, invalidating token and retrying",
			zap.String("method", method),
			zap.String("path", path))
		c.invalidateToken()
		return c.makeRequestWithRetry(ctx, method, path, body, true)
	}

	return resp, nil
}

// Ping verifies that service-account authentication works and the realm is
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.makeRequest(ctx, http.MethodGet, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.FromStatus(resp.StatusCode, "realm probe failed")
	}

	return nil
}

// FindClientByClientID looks a client up by its clientId attribute. Absence
// is a NotFound from the taxonomy, not a raw error.
func (c *Client) FindClientByClientID(ctx context.Context, clientID string) (*ClientRepresentation, error) {
	path := fmt.Sprintf("/clients?clientId=%s", url.QueryEscape(clientID))
	resp, err := c.makeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.FromStatus(resp.StatusCode, "client lookup failed")
	}

	var clients []ClientRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&clients); err != nil {
		return nil, apperr.Unavailable("failed to decode client response", err)
	}

	for i := range clients {
		if clients[i].ClientID == clientID {
			return &clients[i], nil
		}
	}

	return nil, apperr.NotFound(fmt.Sprintf("client %s not found", clientID))
}

// EnsureClientWithRoles makes sure a client named clientID exists with all
// four role tiers defined on it. Safe to call concurrently: a create conflict
// resolves by re-looking the client up, and pre-existing roles are not
// errors.
func (c *Client) EnsureClientWithRoles(ctx context.Context, clientID string) (*ClientRepresentation, error) {
	client, err := c.FindClientByClientID(ctx, clientID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if client == nil {
		client, err = c.createClient(ctx, clientID)
		if err != nil {
			return nil, err
		}
	}

	for _, tier := range models.AllRoleTiers {
		if err := c.ensureClientRole(ctx, client.ID, tier.String()); err != nil {
			return nil, err
		}
	}

	c.logger.Info("Ensured Keycloak client with role tiers",
		zap.String("client_id", clientID),
		zap.String("client_uuid", client.ID))

	return client, nil
}

func (c *Client) createClient(ctx context.Context, clientID string) (*ClientRepresentation, error) {
	rep := &ClientRepresentation{
		ClientID:            clientID,
		Name:                clientID,
		Enabled:             true,
		Protocol:            "openid-connect",
		StandardFlowEnabled: true,
	}

	resp, err := c.makeRequest(ctx, http.MethodPost, "/clients", rep)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		c.logger.Info("Created Keycloak client", zap.String("client_id", clientID))
		return c.FindClientByClientID(ctx, clientID)
	case http.StatusConflict:
		// Concurrent create: someone else won, adopt their client.
		c.logger.Debug("Client already exists, re-resolving", zap.String("client_id", clientID))
		return c.FindClientByClientID(ctx, clientID)
	default:
		return nil, apperr.FromStatus(resp.StatusCode, "create client failed")
	}
}

func (c *Client) ensureClientRole(ctx context.Context, clientUUID, roleName string) error {
	rep := &RoleRepresentation{Name: roleName, ClientRole: true}

	resp, err := c.makeRequest(ctx, http.MethodPost, fmt.Sprintf("/clients/%s/roles", clientUUID), rep)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusConflict:
		return nil
	default:
		return apperr.FromStatus(resp.StatusCode, fmt.Sprintf("create role %s failed", roleName))
	}
}

func (c *Client) getClientRole(ctx context.Context, clientUUID, roleName string) (*RoleRepresentation, error) {
	path := fmt.Sprintf("/clients/%s/roles/%s", clientUUID, url.PathEscape(roleName))
	resp, err := c.makeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound(fmt.Sprintf("role %s not found on client", roleName))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.FromStatus(resp.StatusCode, "role lookup failed")
	}

	var role RoleRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&role); err != nil {
		return nil, apperr.Unavailable("failed to decode role response", err)
	}

	return &role, nil
}

// CreateUser creates the external account and returns its subject id. If
// tempPassword is set it becomes a must-change credential. An existing email
// surfaces as Conflict.
func (c *Client) CreateUser(ctx context.Context, email, firstName, lastName, tempPassword string) (string, error) {
	rep := &UserRepresentation{
		Username:  email,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Enabled:   true,
	}
	if tempPassword != "" {
		rep.Credentials = []CredentialRepresentation{{
			Type:      "password",
			Value:     tempPassword,
			Temporary: true,
		}}
	}

	resp, err := c.makeRequest(ctx, http.MethodPost, "/users", rep)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", apperr.Conflict(fmt.Sprintf("user %s already exists", email))
	}
	if resp.StatusCode != http.StatusCreated {
		return "", apperr.FromStatus(resp.StatusCode, "create user failed")
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", apperr.Unavailable("no location header in create user response", nil)
	}

	parts := strings.Split(location, "/")
	subjectID := parts[len(parts)-1]

	c.logger.Info("Created Keycloak user",
		zap.String("email", email),
		zap.String("subject_id", subjectID))

	return subjectID, nil
}

// AssignClientRole maps a client role onto a subject. Assigning a role the
// subject already holds is a no-op on the Keycloak side.
func (c *Client) AssignClientRole(ctx context.Context, subjectID, clientID string, role models.RoleTier) error {
	return c.changeClientRole(ctx, http.MethodPost, subjectID, clientID, role)
}

// RemoveClientRole removes a client-role mapping from a subject. Removing a
// mapping the subject does not hold is also a no-op.
func (c *Client) RemoveClientRole(ctx context.Context, subjectID, clientID string, role models.RoleTier) error {
	return c.changeClientRole(ctx, http.MethodDelete, subjectID, clientID, role)
}

func (c *Client) changeClientRole(ctx context.Context, method, subjectID, clientID string, role models.RoleTier) error {
	client, err := c.FindClientByClientID(ctx, clientID)
	if err != nil {
		return err
	}

	roleRep, err := c.getClientRole(ctx, client.ID, role.String())
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/users/%s/role-mappings/clients/%s", url.PathEscape(subjectID), client.ID)
	resp, err := c.makeRequest(ctx, method, path, []RoleRepresentation{*roleRep})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apperr.FromStatus(resp.StatusCode, "role mapping change failed")
	}

	c.logger.Info("Changed client role mapping",
		zap.String("method", method),
		zap.String("subject_id", subjectID),
		zap.String("client_id", clientID),
		zap.String("role", role.String()))

	return nil
}

// SendPasswordReset queues an UPDATE_PASSWORD action email for the subject.
// brandingClientID, when set, brands the email and its redirect to that
// client. The call returns once Keycloak accepts the email, not when the
// user acts on it.
func (c *Client) SendPasswordReset(ctx context.Context, subjectID, brandingClientID string) error {
	path := fmt.Sprintf("/users/%s/execute-actions-email?lifespan=%d", url.PathEscape(subjectID), constants.PasswordResetLifespan)
	if brandingClientID != "" {
		path += "&client_id=" + url.QueryEscape(brandingClientID)
	}

	resp, err := c.makeRequest(ctx, http.MethodPut, path, []string{"UPDATE_PASSWORD"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apperr.FromStatus(resp.StatusCode, "password reset email failed")
	}

	c.logger.Info("Queued password reset email",
		zap.String("subject_id", subjectID),
		zap.String("branding_client", brandingClientID))

	return nil
}

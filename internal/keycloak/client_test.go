package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vinumavintel/ums-with-admin-ui/internal/apperr"
	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

const testRealm = "platform"

// fakeKeycloak serves the token endpoint plus whatever admin routes a test
// registers on its mux. Admin paths are registered relative to the realm
// admin root.
type fakeKeycloak struct {
	srv           *httptest.Server
	mux           *http.ServeMux
	tokenRequests atomic.Int32
}

func newFakeKeycloak(t *testing.T) (*fakeKeycloak, *Client) {
	t.Helper()

	f := &fakeKeycloak{mux: http.NewServeMux()}
	f.mux.HandleFunc(fmt.Sprintf("/realms/%s/protocol/openid-connect/token", testRealm), func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":300}`, f.tokenRequests.Load())
	})

	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)

	client := NewClient(f.srv.URL, testRealm, "admin-cli", "secret", zaptest.NewLogger(t))
	return f, client
}

func (f *fakeKeycloak) admin(path string, handler http.HandlerFunc) {
	f.mux.HandleFunc(fmt.Sprintf("/admin/realms/%s%s", testRealm, path), handler)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestEnsureClientWithRolesCreatesClientAndTiers(t *testing.T) {
	f, client := newFakeKeycloak(t)

	var created atomic.Bool
	rolesCreated := map[string]bool{}

	f.admin("/clients", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "billing", r.URL.Query().Get("clientId"))
			if created.Load() {
				writeJSON(w, []ClientRepresentation{{ID: "uuid-1", ClientID: "billing"}})
				return
			}
			writeJSON(w, []ClientRepresentation{})
		case http.MethodPost:
			var rep ClientRepresentation
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
			assert.Equal(t, "billing", rep.ClientID)
			assert.True(t, rep.Enabled)
			created.Store(true)
			w.WriteHeader(http.StatusCreated)
		}
	})
	f.admin("/clients/uuid-1/roles", func(w http.ResponseWriter, r *http.Request) {
		var rep RoleRepresentation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
		rolesCreated[rep.Name] = true
		w.WriteHeader(http.StatusCreated)
	})

	got, err := client.EnsureClientWithRoles(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", got.ID)

	for _, tier := range models.AllRoleTiers {
		assert.True(t, rolesCreated[tier.String()], tier)
	}
}

// A create conflict re-resolves the client another writer created; a 409 on
// a role means the tier already exists.
func TestEnsureClientWithRolesAdoptsConflict(t *testing.T) {
	f, client := newFakeKeycloak(t)

	var lookups atomic.Int32
	f.admin("/clients", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if lookups.Add(1) == 1 {
				writeJSON(w, []ClientRepresentation{})
				return
			}
			writeJSON(w, []ClientRepresentation{{ID: "uuid-2", ClientID: "billing"}})
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
		}
	})
	f.admin("/clients/uuid-2/roles", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	got, err := client.EnsureClientWithRoles(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, "uuid-2", got.ID)
}

func TestFindClientByClientIDNotFound(t *testing.T) {
	f, client := newFakeKeycloak(t)
	f.admin("/clients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []ClientRepresentation{})
	})

	_, err := client.FindClientByClientID(context.Background(), "ghost")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateUserReturnsSubjectFromLocation(t *testing.T) {
	f, client := newFakeKeycloak(t)
	f.admin("/users", func(w http.ResponseWriter, r *http.Request) {
		var rep UserRepresentation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
		assert.Equal(t, "jane@example.com", rep.Email)
		assert.Equal(t, "jane@example.com", rep.Username)
		assert.True(t, rep.Enabled)
		require.Len(t, rep.Credentials, 1)
		assert.True(t, rep.Credentials[0].Temporary)

		w.Header().Set("Location", f.srv.URL+"/admin/realms/platform/users/subj-42")
		w.WriteHeader(http.StatusCreated)
	})

	subjectID, err := client.CreateUser(context.Background(), "jane@example.com", "Jane", "Doe", "changeme")
	require.NoError(t, err)
	assert.Equal(t, "subj-42", subjectID)
}

func TestCreateUserConflict(t *testing.T) {
	f, client := newFakeKeycloak(t)
	f.admin("/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := client.CreateUser(context.Background(), "jane@example.com", "", "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestStatusNormalization(t *testing.T) {
	f, client := newFakeKeycloak(t)
	var status atomic.Int32
	f.admin("/clients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	})

	status.Store(http.StatusForbidden)
	_, err := client.FindClientByClientID(context.Background(), "billing")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)

	status.Store(http.StatusInternalServerError)
	_, err = client.FindClientByClientID(context.Background(), "billing")
	assert.True(t, apperr.IsKind(err, apperr.KindUnavailable), "got %v", err)
}

func TestExpiredTokenRetriedOnce(t *testing.T) {
	f, client := newFakeKeycloak(t)

	var calls atomic.Int32
	f.admin("/clients", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"))
		writeJSON(w, []ClientRepresentation{{ID: "uuid-1", ClientID: "billing"}})
	})

	got, err := client.FindClientByClientID(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", got.ID)
	assert.EqualValues(t, 2, f.tokenRequests.Load())
	assert.EqualValues(t, 2, calls.Load())
}

func TestAssignAndRemoveClientRole(t *testing.T) {
	f, client := newFakeKeycloak(t)

	f.admin("/clients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []ClientRepresentation{{ID: "uuid-1", ClientID: "billing"}})
	})
	f.admin("/clients/uuid-1/roles/admin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, RoleRepresentation{ID: "role-1", Name: "admin", ClientRole: true})
	})
	f.admin("/clients/uuid-1/roles/read-write", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	var methods []string
	f.admin("/users/subj-1/role-mappings/clients/uuid-1", func(w http.ResponseWriter, r *http.Request) {
		var reps []RoleRepresentation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reps))
		require.Len(t, reps, 1)
		assert.Equal(t, "role-1", reps[0].ID)
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.AssignClientRole(context.Background(), "subj-1", "billing", models.RoleTierAdmin))
	require.NoError(t, client.RemoveClientRole(context.Background(), "subj-1", "billing", models.RoleTierAdmin))
	assert.Equal(t, []string{http.MethodPost, http.MethodDelete}, methods)

	err := client.AssignClientRole(context.Background(), "subj-1", "billing", models.RoleTierReadWrite)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSendPasswordReset(t *testing.T) {
	f, client := newFakeKeycloak(t)

	var seen *http.Request
	var actions []string
	f.admin("/users/subj-1/execute-actions-email", func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&actions))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SendPasswordReset(context.Background(), "subj-1", "billing"))
	require.NotNil(t, seen)
	assert.Equal(t, http.MethodPut, seen.Method)
	assert.Equal(t, "3600", seen.URL.Query().Get("lifespan"))
	assert.Equal(t, "billing", seen.URL.Query().Get("client_id"))
	assert.Equal(t, []string{"UPDATE_PASSWORD"}, actions)
}

func TestPing(t *testing.T) {
	f, client := newFakeKeycloak(t)
	f.admin("", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"realm": testRealm})
	})

	assert.NoError(t, client.Ping(context.Background()))
}

type countingTransport struct {
	base          http.RoundTripper
	tokenRequests atomic.Int32
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/protocol/openid-connect/token") {
		t.tokenRequests.Add(1)
	}
	return t.base.RoundTrip(req)
}

// The token POST must go through the client's own bounded http.Client, not
// http.DefaultClient.
func TestTokenFetchUsesOwnHTTPClient(t *testing.T) {
	f, client := newFakeKeycloak(t)
	f.admin("", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"realm": testRealm})
	})

	transport := &countingTransport{base: http.DefaultTransport}
	client.httpClient = &http.Client{Transport: transport, Timeout: 5 * time.Second}

	require.NoError(t, client.Ping(context.Background()))
	assert.EqualValues(t, 1, transport.tokenRequests.Load())
	assert.EqualValues(t, 1, f.tokenRequests.Load())
}

package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-marketplace-api/config"
	"go-marketplace-api/model"
	"go-marketplace-api/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{
	AccessSecret:  "test-access-secret",
	RefreshSecret: "test-refresh-secret",
	AccessTTL:     time.Hour,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "backend-dashboard",
	Audience:      "dashboard-users",
	Algorithm:     "HS256",
}

type fakeLedger struct {
	revoked map[string]bool
	err     error
}

func (f *fakeLedger) IsBlacklisted(_ context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

// fakeUsers holds the active users by id.
type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok || !u.IsActive {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

// echoIdentity writes the user id and roles found in the request context.
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := r.Context().Value(UserIDKey).(string)
	var roles []model.Role
	if user, ok := r.Context().Value(UserKey).(*model.User); ok {
		roles = user.Roles
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "roles": roles})
})

func withAuth(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware(t *testing.T) {
	tokens := service.NewTokenService(testJWT)
	user := &model.User{ID: "01HZX", Email: "alice@example.com", Roles: []model.Role{model.RoleStoreOwner}, IsActive: true}
	access, _, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)
	refresh, _, err := tokens.IssueRefreshToken(user)
	require.NoError(t, err)
	revokedAccess, _, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	ledger := &fakeLedger{revoked: map[string]bool{revokedAccess: true}}
	users := &fakeUsers{users: map[string]*model.User{user.ID: user}}
	h := AuthMiddleware(tokens, ledger, users)(echoIdentity)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + access, http.StatusOK},
		{"lowercase scheme", "bearer " + access, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + access, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"revoked", "Bearer " + revokedAccess, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := withAuth(h, tt.header)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"id":"01HZX","roles":["store_owner"]}`, rr.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_LedgerFailure(t *testing.T) {
	tokens := service.NewTokenService(testJWT)
	access, _, err := tokens.IssueAccessToken(&model.User{ID: "01HZX"})
	require.NoError(t, err)

	users := &fakeUsers{users: map[string]*model.User{"01HZX": {ID: "01HZX", IsActive: true}}}
	h := AuthMiddleware(tokens, &fakeLedger{err: errors.New("db down")}, users)(echoIdentity)

	rr := withAuth(h, "Bearer "+access)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAuthMiddleware_LoadsStoredUser(t *testing.T) {
	tokens := service.NewTokenService(testJWT)
	admin := &model.User{ID: "01HZX", Email: "alice@example.com", Roles: []model.Role{model.RoleAdmin}, IsActive: true}
	access, _, err := tokens.IssueAccessToken(admin)
	require.NoError(t, err)

	t.Run("deactivated user is rejected", func(t *testing.T) {
		stored := *admin
		stored.IsActive = false
		users := &fakeUsers{users: map[string]*model.User{admin.ID: &stored}}
		h := AuthMiddleware(tokens, &fakeLedger{}, users)(echoIdentity)

		assert.Equal(t, http.StatusUnauthorized, withAuth(h, "Bearer "+access).Code)
	})

	t.Run("deleted user is rejected", func(t *testing.T) {
		h := AuthMiddleware(tokens, &fakeLedger{}, &fakeUsers{})(echoIdentity)

		assert.Equal(t, http.StatusUnauthorized, withAuth(h, "Bearer "+access).Code)
	})

	t.Run("demoted admin loses admin routes", func(t *testing.T) {
		stored := *admin
		stored.Roles = []model.Role{model.RoleUser}
		users := &fakeUsers{users: map[string]*model.User{admin.ID: &stored}}
		h := AuthMiddleware(tokens, &fakeLedger{}, users)(RequireRole(model.RoleAdmin)(echoIdentity))

		assert.Equal(t, http.StatusForbidden, withAuth(h, "Bearer "+access).Code)
	})

	t.Run("roles come from the stored user", func(t *testing.T) {
		stored := *admin
		stored.Roles = []model.Role{model.RoleStoreManager}
		users := &fakeUsers{users: map[string]*model.User{admin.ID: &stored}}
		h := AuthMiddleware(tokens, &fakeLedger{}, users)(echoIdentity)

		rr := withAuth(h, "Bearer "+access)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"id":"01HZX","roles":["store_manager"]}`, rr.Body.String())
	})

	t.Run("lookup failure", func(t *testing.T) {
		h := AuthMiddleware(tokens, &fakeLedger{}, &fakeUsers{err: errors.New("db down")})(echoIdentity)

		assert.Equal(t, http.StatusInternalServerError, withAuth(h, "Bearer "+access).Code)
	})
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleAdmin)(echoIdentity)

	tests := []struct {
		name       string
		roles      []model.Role
		wantStatus int
	}{
		{"admin", []model.Role{model.RoleUser, model.RoleAdmin}, http.StatusOK},
		{"not admin", []model.Role{model.RoleStoreOwner}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tt.roles != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserKey, &model.User{ID: "01HZX", Roles: tt.roles}))
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-marketplace-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestValidateAndDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"email":"alice@example.com","password":"pw123456","first_name":"Alice","last_name":"Smith"}`, ""},
		{"valid with roles", `{"email":"alice@example.com","password":"pw123456","first_name":"A","last_name":"S","roles":["store_owner","customer"]}`, ""},
		{"malformed json", `{"email":`, "Invalid request body"},
		{"unknown field", `{"email":"alice@example.com","password":"pw123456","first_name":"A","last_name":"S","admin":true}`, "Invalid request body"},
		{"bad email", `{"email":"nope","password":"pw123456","first_name":"A","last_name":"S"}`, "email: failed on 'email'"},
		{"short password", `{"email":"alice@example.com","password":"pw","first_name":"A","last_name":"S"}`, "password: failed on 'min=6'"},
		{"multibyte password over 72 bytes", `{"email":"alice@example.com","password":"` + strings.Repeat("é", 40) + `","first_name":"A","last_name":"S"}`, "password: failed on 'bcryptlen'"},
		{"multibyte password within 72 bytes", `{"email":"alice@example.com","password":"` + strings.Repeat("é", 36) + `","first_name":"A","last_name":"S"}`, ""},
		{"unknown role", `{"email":"alice@example.com","password":"pw123456","first_name":"A","last_name":"S","roles":["root"]}`, "roles[0]: failed on 'role'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req model.RegisterRequest
			appErr := ValidateAndDecode(newJSONRequest(tt.body), &req)

			if tt.wantErr == "" {
				require.Nil(t, appErr)
				assert.Equal(t, "alice@example.com", req.Email)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestValidateAndDecode_RolesRequired(t *testing.T) {
	var req model.UpdateUserRolesRequest
	appErr := ValidateAndDecode(newJSONRequest(`{"roles":[]}`), &req)

	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "roles: failed on 'min=1'")
}

func TestAppError_Send(t *testing.T) {
	rr := httptest.NewRecorder()

	NewAppError(http.StatusConflict, "Email already registered", nil).Send(rr)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":409,"message":"Email already registered"}`, rr.Body.String())
}

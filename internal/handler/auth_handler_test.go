package handler

import (
	"net/http"
	"testing"

	"class-election/internal/middleware"
	"class-election/internal/service/auth"
	"class-election/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoterLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantMsg    string
	}{
		{name: "valid token", token: s.ann.Token.String(), wantStatus: http.StatusOK},
		{name: "unknown token", token: uuid.NewString(), wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "malformed token", token: "not-a-token", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "empty token", token: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(http.MethodPost, "/api/auth/login", map[string]string{"token": tt.token}, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				var body errors.ErrorResponse
				decode(t, rec, &body)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, body.Error.Message)
				}
				return
			}

			var body SessionResponse
			decode(t, rec, &body)
			assert.True(t, body.Success)
			require.NotNil(t, body.Voter)
			assert.Equal(t, "S001", body.Voter.RegNo)
			assert.False(t, body.Voter.HasVoted)

			claims, err := s.sessions.Validate(body.Token, auth.RoleVoter)
			require.NoError(t, err)
			assert.Equal(t, s.ann.ID, claims.VoterID)
		})
	}
}

func TestVoterLogin_UnknownFieldsRejected(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(http.MethodPost, "/api/auth/login", map[string]string{"token": s.ann.Token.String(), "extra": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditorLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(http.MethodPost, "/api/admin/login", AuditorLoginRequest{Password: "audit2025", AccessCode: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.doJSON(http.MethodPost, "/api/admin/login", AuditorLoginRequest{Password: "audit2025"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var invalid errors.ErrorResponse
	decode(t, rec, &invalid)
	assert.Contains(t, invalid.Error.Details, "access_code")

	rec = s.doJSON(http.MethodPost, "/api/admin/login", AuditorLoginRequest{Password: "audit2025", AccessCode: "AUDIT-CODE"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body SessionResponse
	decode(t, rec, &body)
	assert.Nil(t, body.Voter)
	_, err := s.sessions.Validate(body.Token, auth.RoleAuditor)
	assert.NoError(t, err)
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t, func(d *RouterDeps) {
		d.LoginLimiter = middleware.NewIPRateLimiter(1, 2)
	})

	payload := map[string]string{"token": uuid.NewString()}
	assert.Equal(t, http.StatusUnauthorized, s.doJSON(http.MethodPost, "/api/auth/login", payload, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.doJSON(http.MethodPost, "/api/auth/login", payload, "").Code)

	rec := s.doJSON(http.MethodPost, "/api/auth/login", payload, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The budget is shared with the auditor login.
	rec = s.doJSON(http.MethodPost, "/api/admin/login", AuditorLoginRequest{Password: "audit2025", AccessCode: "AUDIT-CODE"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

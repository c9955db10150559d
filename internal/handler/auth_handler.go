package handler

import (
	"net/http"
	"time"

	"class-election/internal/domain"
	"class-election/internal/service"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	validation "github.com/go-ozzo/ozzo-validation"
)

// SessionIssuer signs voter and auditor sessions
type SessionIssuer interface {
	IssueVoterToken(voter *domain.Voter) (string, time.Time, error)
	IssueAuditorToken() (string, time.Time, error)
}

// AuthHandler handles voter and auditor login
type AuthHandler struct {
	voters   service.VoterManager
	settings service.SettingsManager
	sessions SessionIssuer
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(voters service.VoterManager, settings service.SettingsManager, sessions SessionIssuer, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		voters:   voters,
		settings: settings,
		sessions: sessions,
		logger:   log,
	}
}

// VoterLoginRequest is the body of POST /api/auth/login
type VoterLoginRequest struct {
	Token string `json:"token"`
}

func (req VoterLoginRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Token, validation.Required),
	)
}

// AuditorLoginRequest is the body of POST /api/admin/login
type AuditorLoginRequest struct {
	Password   string `json:"password"`
	AccessCode string `json:"access_code"`
}

func (req AuditorLoginRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Password, validation.Required),
		validation.Field(&req.AccessCode, validation.Required),
	)
}

// SessionResponse is returned by both logins
type SessionResponse struct {
	Success   bool                 `json:"success"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Voter     *domain.VoterSummary `json:"voter,omitempty"`
}

// VoterLogin handles POST /api/auth/login
func (h *AuthHandler) VoterLogin(w http.ResponseWriter, r *http.Request) {
	var req VoterLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, r, h.logger, errors.FromValidation("Please enter your voting token", err))
		return
	}

	voter, err := h.voters.Authenticate(r.Context(), req.Token)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	token, expires, err := h.sessions.IssueVoterToken(voter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.WithField("voter_id", voter.ID).Info("Voter logged in")
	summary := voter.Summary()
	respondJSON(w, http.StatusOK, SessionResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expires,
		Voter:     &summary,
	})
}

// AuditorLogin handles POST /api/admin/login
func (h *AuthHandler) AuditorLogin(w http.ResponseWriter, r *http.Request) {
	var req AuditorLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, r, h.logger, errors.FromValidation("Password and access code are required", err))
		return
	}

	if err := h.settings.VerifyAuditCredentials(r.Context(), req.Password, req.AccessCode); err != nil {
		h.logger.Warn("Failed auditor login attempt")
		respondError(w, r, h.logger, err)
		return
	}

	token, expires, err := h.sessions.IssueAuditorToken()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Auditor logged in")
	respondJSON(w, http.StatusOK, SessionResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expires,
	})
}

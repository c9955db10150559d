package auth

import (
	"fmt"
	"strconv"
	"time"

	"class-election/internal/domain"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "class-election"

// Role distinguishes voter sessions from auditor sessions.
type Role string

const (
	RoleVoter   Role = "voter"
	RoleAuditor Role = "auditor"
)

// Claims is the JWT payload of a session.
type Claims struct {
	Role    Role  `json:"role"`
	VoterID int64 `json:"voter_id,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 session tokens
type Service struct {
	secret   []byte
	voterTTL time.Duration
	auditTTL time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a new session service
func NewService(secret string, voterTTL, auditTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		secret:   []byte(secret),
		voterTTL: voterTTL,
		auditTTL: auditTTL,
		logger:   log,
		now:      time.Now,
	}
}

// IssueVoterToken signs a session for an authenticated voter.
func (s *Service) IssueVoterToken(voter *domain.Voter) (string, time.Time, error) {
	return s.issue(Claims{Role: RoleVoter, VoterID: voter.ID}, strconv.FormatInt(voter.ID, 10), s.voterTTL)
}

// IssueAuditorToken signs a session for the election auditor.
func (s *Service) IssueAuditorToken() (string, time.Time, error) {
	return s.issue(Claims{Role: RoleAuditor}, string(RoleAuditor), s.auditTTL)
}

func (s *Service) issue(claims Claims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return "", time.Time{}, errors.NewInternalError("Failed to create session", err)
	}
	return signed, expires, nil
}

// Validate parses a session token and checks it carries the wanted role.
func (s *Service) Validate(tokenString string, want Role) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		s.logger.WithError(err).Debug("Session token rejected")
		return nil, errors.NewAuthenticationError("Invalid or expired session")
	}

	if claims.Role != want {
		return nil, errors.NewAuthorizationError("Insufficient permissions")
	}
	if want == RoleVoter && claims.VoterID <= 0 {
		return nil, errors.NewAuthenticationError("Invalid or expired session")
	}
	return claims, nil
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"class-election/internal/service/auth"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// ClaimsContextKey is the key for the session claims in context
	ClaimsContextKey ContextKey = "claims"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

const requestIDHeader = "X-Request-ID"

// SessionValidator verifies bearer session tokens
type SessionValidator interface {
	Validate(token string, want auth.Role) (*auth.Claims, error)
}

// VoterAuth requires a voter session
func VoterAuth(sessions SessionValidator, logger *logger.Logger) func(http.Handler) http.Handler {
	return requireRole(sessions, auth.RoleVoter, logger)
}

// AuditorAuth requires an auditor session
func AuditorAuth(sessions SessionValidator, logger *logger.Logger) func(http.Handler) http.Handler {
	return requireRole(sessions, auth.RoleAuditor, logger)
}

func requireRole(sessions SessionValidator, role auth.Role, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Token is required"), logger)
				return
			}

			claims, err := sessions.Validate(token, role)
			if err != nil {
				appErr, ok := errors.As(err)
				if !ok {
					appErr = errors.NewAuthenticationError("Invalid or expired session")
				}
				writeErrorResponse(w, r, appErr, logger)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the session claims set by VoterAuth or AuditorAuth.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// VoterIDFromContext returns the authenticated voter id.
func VoterIDFromContext(ctx context.Context) (int64, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.Role != auth.RoleVoter {
		return 0, false
	}
	return claims.VoterID, true
}

// RequestID creates a middleware that adds a unique request ID to each request.
// A well-formed incoming X-Request-ID is kept.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set(requestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request id, or "" outside RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	requestID := GetRequestID(r.Context())
	logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"path":       r.URL.Path,
		"error_type": appErr.Type,
	}).Debug(appErr.Message)

	errors.Write(w, appErr, requestID)
}

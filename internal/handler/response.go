package handler

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"class-election/internal/middleware"
	"class-election/pkg/errors"
	"class-election/pkg/logger"
)

const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes err as an ErrorResponse. Errors that are not an
// AppError are logged and reported as internal errors.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("An unexpected error occurred", err)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).WithFields(map[string]interface{}{
			"request_id": requestID,
			"path":       r.URL.Path,
		}).Error("Request failed")
	}
	errors.Write(w, appErr, requestID)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("Invalid request body", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}

// optionalID parses an optional positive integer query parameter.
func optionalID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.NewValidationError("Invalid "+name, map[string]interface{}{name: raw})
	}
	return &id, nil
}

func pathID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("Invalid "+name, map[string]interface{}{name: raw})
	}
	return id, nil
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

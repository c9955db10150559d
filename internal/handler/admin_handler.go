package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"class-election/internal/domain"
	"class-election/internal/service"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const (
	maxCSVUpload   = 10 << 20
	maxPhotoUpload = domain.MaxPhotoBytes + (1 << 20)
)

// AdminHandler serves the auditor endpoints. Every route sits behind
// AuditorAuth.
type AdminHandler struct {
	voters     service.VoterManager
	candidates service.CandidateManager
	positions  service.PositionManager
	settings   service.SettingsManager
	audit      service.AuditReader
	logger     *logger.Logger
	now        func() time.Time
}

func NewAdminHandler(services *service.Services, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		voters:     services.Voters,
		candidates: services.Candidates,
		positions:  services.Positions,
		settings:   services.Settings,
		audit:      services.Audit,
		logger:     log,
		now:        time.Now,
	}
}

// AuditTrail handles GET /api/admin/audit
func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	positionID, err := optionalID(r, "position_id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	entries, err := h.audit.Trail(r.Context(), domain.AuditFilter{
		PositionID: positionID,
		Voter:      strings.TrimSpace(r.URL.Query().Get("voter")),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// ExportVoters handles GET /api/admin/voters/export
func (h *AdminHandler) ExportVoters(w http.ResponseWriter, r *http.Request) {
	opts := domain.ExportOptions{
		IncludeVoted: queryBool(r, "include_voted", true),
		TokensOnly:   queryBool(r, "tokens_only", false),
	}

	var buf bytes.Buffer
	count, err := h.voters.ExportCSV(r.Context(), &buf, opts)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	filename := fmt.Sprintf("voters_export_%s.csv", h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("X-Export-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ImportVoters handles POST /api/admin/voters/import (multipart csv_file)
func (h *AdminHandler) ImportVoters(w http.ResponseWriter, r *http.Request) {
	file, err := h.formFile(w, r, "csv_file", maxCSVUpload)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer file.Close()

	summary, err := h.voters.ImportCSV(r.Context(), file, service.VoterImportOptions{
		Update: true,
		Force:  queryBool(r, "force", false),
	}, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ImportCandidates handles POST /api/admin/candidates/import (multipart csv_file)
func (h *AdminHandler) ImportCandidates(w http.ResponseWriter, r *http.Request) {
	file, err := h.formFile(w, r, "csv_file", maxCSVUpload)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer file.Close()

	summary, err := h.candidates.ImportCSV(r.Context(), file, service.CandidateImportOptions{
		DryRun: queryBool(r, "dry_run", false),
		Update: queryBool(r, "update", false),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// UploadPhoto handles POST /api/admin/candidates/{id}/photo (multipart photo)
func (h *AdminHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	candidateID, err := pathID(chi.URLParam(r, "id"), "candidate id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if !h.candidates.PhotoStorageConfigured() {
		respondError(w, r, h.logger, errors.NewUnavailableError("Photo storage is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUpload)
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("Photo must be at most 5 MB", nil))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("No photo uploaded", nil))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxPhotoBytes+1))
	if err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("Failed to read photo", nil))
		return
	}

	candidate, err := h.candidates.UploadPhoto(r.Context(), candidateID, header.Filename, data)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"candidate": candidate,
	})
}

// DeletePhoto handles DELETE /api/admin/candidates/{id}/photo
func (h *AdminHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	candidateID, err := pathID(chi.URLParam(r, "id"), "candidate id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.candidates.DeletePhoto(r.Context(), candidateID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *AdminHandler) decodeActive(w http.ResponseWriter, r *http.Request) (bool, error) {
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return false, err
	}
	if req.IsActive == nil {
		return false, errors.NewValidationError("is_active is required", nil)
	}
	return *req.IsActive, nil
}

// CreatePosition handles POST /api/admin/positions
func (h *AdminHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var in service.PositionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	position, err := h.positions.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, position)
}

// SetPositionActive handles PUT /api/admin/positions/{id}/active
func (h *AdminHandler) SetPositionActive(w http.ResponseWriter, r *http.Request) {
	positionID, err := pathID(chi.URLParam(r, "id"), "position id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	active, err := h.decodeActive(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	position, err := h.positions.SetActive(r.Context(), positionID, active)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, position)
}

// SetCandidateActive handles PUT /api/admin/candidates/{id}/active
func (h *AdminHandler) SetCandidateActive(w http.ResponseWriter, r *http.Request) {
	candidateID, err := pathID(chi.URLParam(r, "id"), "candidate id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	active, err := h.decodeActive(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	candidate, err := h.candidates.SetActive(r.Context(), candidateID, active)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, candidate)
}

// GetSettings handles GET /api/admin/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update service.SettingsUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	settings, err := h.settings.Update(r.Context(), update)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// ResetVoter handles POST /api/admin/voters/{id}/reset
func (h *AdminHandler) ResetVoter(w http.ResponseWriter, r *http.Request) {
	voterID, err := pathID(chi.URLParam(r, "id"), "voter id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	removed, err := h.voters.Reset(r.Context(), voterID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"voter_id":      voterID,
		"votes_removed": removed,
	})
}

func (h *AdminHandler) formFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, errors.NewValidationError("Invalid upload", map[string]interface{}{"error": err.Error()})
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.NewValidationError("No file uploaded", map[string]interface{}{"field": field})
	}
	return file, nil
}

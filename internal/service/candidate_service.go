package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strings"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	validation "github.com/go-ozzo/ozzo-validation"
)

// CandidateImportOptions controls candidate ImportCSV.
type CandidateImportOptions struct {
	DryRun bool
	// Update refreshes name and bio of an existing registration number and
	// links it to the row's position.
	Update bool
}

const photoDir = "candidates"

type CandidateService struct {
	repos  *repository.Repositories
	photos PhotoStore
	cache  *CacheService
	logger *logger.Logger
}

func NewCandidateService(repos *repository.Repositories, photos PhotoStore, cache *CacheService, log *logger.Logger) *CandidateService {
	return &CandidateService{
		repos:  repos,
		photos: photos,
		cache:  cache,
		logger: log,
	}
}

// ParseCandidateCSV reads name,reg_no,description,position rows.
func ParseCandidateCSV(r io.Reader) ([]domain.CandidateRow, error) {
	records, err := readCSV(r, "name", "reg_no", "description", "position")
	if err != nil {
		return nil, err
	}
	rows := make([]domain.CandidateRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.CandidateRow{
			Line:     rec.Line,
			Name:     rec.get("name"),
			RegNo:    rec.get("reg_no"),
			Bio:      rec.get("description"),
			Position: rec.get("position"),
		})
	}
	return rows, nil
}

func validateCandidateRow(row domain.CandidateRow) error {
	return validation.ValidateStruct(&row,
		validation.Field(&row.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&row.RegNo, validation.Required, validation.Length(1, 20)),
		validation.Field(&row.Position, validation.Required),
	)
}

// ImportCSV loads candidates. Rows naming an unknown position are reported
// and skipped. With DryRun nothing is written but the counts are the same.
func (s *CandidateService) ImportCSV(ctx context.Context, r io.Reader, opts CandidateImportOptions) (*domain.ImportSummary, error) {
	rows, err := ParseCandidateCSV(r)
	if err != nil {
		return nil, err
	}

	summary := &domain.ImportSummary{DryRun: opts.DryRun}
	plannedRegNos := make(map[string]bool)

	for _, row := range rows {
		if err := validateCandidateRow(row); err != nil {
			summary.AddError(fmt.Sprintf("Row %d: missing required fields (name, reg_no, or position): %v", row.Line, err))
			continue
		}

		position, err := s.repos.Positions.GetByTitle(ctx, row.Position)
		if err != nil {
			return summary, errors.NewInternalError("Failed to look up position", err)
		}
		if position == nil {
			summary.AddError(fmt.Sprintf("Row %d: position %q does not exist", row.Line, row.Position))
			continue
		}

		existing, err := s.repos.Candidates.GetByRegNo(ctx, row.RegNo)
		if err != nil {
			return summary, errors.NewInternalError("Failed to look up candidate", err)
		}
		exists := existing != nil || plannedRegNos[row.RegNo]

		switch {
		case !exists:
			plannedRegNos[row.RegNo] = true
			if !opts.DryRun {
				candidate := &domain.Candidate{
					Name:        row.Name,
					RegNo:       row.RegNo,
					Bio:         row.Bio,
					IsActive:    true,
					PositionIDs: []int64{position.ID},
				}
				if err := s.repos.Candidates.Create(ctx, candidate); err != nil {
					return summary, errors.NewInternalError("Failed to create candidate", err)
				}
			}
			summary.Created++
		case opts.Update:
			if !opts.DryRun && existing != nil {
				existing.Name = row.Name
				existing.Bio = row.Bio
				if err := s.repos.Candidates.Update(ctx, existing); err != nil {
					return summary, errors.NewInternalError("Failed to update candidate", err)
				}
				if err := s.repos.Candidates.LinkPosition(ctx, existing.ID, position.ID); err != nil {
					return summary, errors.NewInternalError("Failed to link candidate to position", err)
				}
			}
			summary.Updated++
		default:
			summary.Skipped++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"errors":  len(summary.Errors),
		"dry_run": opts.DryRun,
	}).Info("Candidate import completed")

	if !opts.DryRun && summary.Created+summary.Updated > 0 {
		s.cache.InvalidateResults()
	}
	return summary, nil
}

func (s *CandidateService) PhotoStorageConfigured() bool {
	return s.photos != nil && s.photos.IsConfigured()
}

// ValidatePhoto enforces the upload size limit and extension whitelist.
func ValidatePhoto(filename string, data []byte) error {
	ext := domain.PhotoExtension(filename)
	err := validation.Errors{
		"photo":     validation.Validate(data, validation.Required, validation.Length(1, domain.MaxPhotoBytes)),
		"extension": validation.Validate(ext, validation.In(".jpg", ".jpeg", ".png", ".gif")),
	}.Filter()
	if err != nil {
		return errors.FromValidation("Invalid photo", err)
	}
	return nil
}

// PhotoPath is where a candidate's photo lives in the photo store.
func PhotoPath(regNo, ext string) string {
	return path.Join(photoDir, fmt.Sprintf("candidate_%s%s", regNo, strings.ToLower(ext)))
}

// UploadPhoto stores the image and records its public URL on the candidate.
func (s *CandidateService) UploadPhoto(ctx context.Context, candidateID int64, filename string, data []byte) (*domain.Candidate, error) {
	if !s.PhotoStorageConfigured() {
		return nil, errors.NewUnavailableError("Photo storage is not configured")
	}
	if err := ValidatePhoto(filename, data); err != nil {
		return nil, err
	}

	candidate, err := s.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	photoPath := PhotoPath(candidate.RegNo, domain.PhotoExtension(filename))
	url, err := s.photos.Upload(ctx, photoPath, data, fmt.Sprintf("Upload photo for candidate %s", candidate.Name))
	if err != nil {
		s.logger.WithError(err).WithField("candidate_id", candidateID).Error("Photo upload failed")
		return nil, errors.NewExternalError("Failed to upload photo", err)
	}

	if err := s.repos.Candidates.SetPhotoURL(ctx, candidate.ID, url); err != nil {
		return nil, errors.NewInternalError("Failed to save photo URL", err)
	}
	candidate.PhotoURL = url

	s.cache.InvalidateResults()
	s.logger.WithFields(map[string]interface{}{
		"candidate_id": candidate.ID,
		"path":         photoPath,
		"bytes":        len(data),
	}).Info("Candidate photo uploaded")
	return candidate, nil
}

// DeletePhoto removes the stored image and clears the URL.
func (s *CandidateService) DeletePhoto(ctx context.Context, candidateID int64) error {
	if !s.PhotoStorageConfigured() {
		return errors.NewUnavailableError("Photo storage is not configured")
	}

	candidate, err := s.candidate(ctx, candidateID)
	if err != nil {
		return err
	}
	if !candidate.HasPhoto() {
		return errors.NewNotFoundError("Candidate has no photo")
	}

	photoPath := PhotoPath(candidate.RegNo, domain.PhotoExtension(candidate.PhotoURL))
	if err := s.photos.Delete(ctx, photoPath, fmt.Sprintf("Delete photo for candidate %s", candidate.Name)); err != nil {
		s.logger.WithError(err).WithField("candidate_id", candidateID).Error("Photo delete failed")
		return errors.NewExternalError("Failed to delete photo", err)
	}
	if err := s.repos.Candidates.SetPhotoURL(ctx, candidate.ID, ""); err != nil {
		return errors.NewInternalError("Failed to clear photo URL", err)
	}

	s.cache.InvalidateResults()
	return nil
}

// SetActive puts a candidate on the ballot or withdraws them. Votes already
// cast for a withdrawn candidate still count.
func (s *CandidateService) SetActive(ctx context.Context, candidateID int64, active bool) (*domain.Candidate, error) {
	if err := s.repos.Candidates.SetActive(ctx, candidateID, active); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError("Candidate not found")
		}
		return nil, errors.NewInternalError("Failed to update candidate", err)
	}

	candidate, err := s.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateResults()
	s.logger.WithFields(map[string]interface{}{
		"candidate_id": candidateID,
		"is_active":    active,
	}).Info("Candidate visibility changed")
	return candidate, nil
}

func (s *CandidateService) candidate(ctx context.Context, id int64) (*domain.Candidate, error) {
	candidate, err := s.repos.Candidates.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load candidate", err)
	}
	if candidate == nil {
		return nil, errors.NewNotFoundError("Candidate not found")
	}
	return candidate, nil
}

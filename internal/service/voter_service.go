package service

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// VoterImportOptions controls ImportCSV.
type VoterImportOptions struct {
	// Update renames existing voters whose name differs.
	Update bool
	// Force allows the import while voting is Active.
	Force bool
}

const exportTimeLayout = "2006-01-02 15:04:05"

type VoterService struct {
	repos    *repository.Repositories
	settings *SettingsService
	cache    *CacheService
	logger   *logger.Logger
}

func NewVoterService(repos *repository.Repositories, settings *SettingsService, cache *CacheService, log *logger.Logger) *VoterService {
	return &VoterService{
		repos:    repos,
		settings: settings,
		cache:    cache,
		logger:   log,
	}
}

// Authenticate resolves a login token to its voter.
func (s *VoterService) Authenticate(ctx context.Context, token string) (*domain.Voter, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, errors.NewAuthenticationError("Invalid token")
	}
	voter, err := s.repos.Voters.GetByToken(ctx, parsed)
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up voter token")
		return nil, errors.NewInternalError("Failed to authenticate", err)
	}
	if voter == nil {
		return nil, errors.NewAuthenticationError("Invalid token")
	}
	return voter, nil
}

func (s *VoterService) Get(ctx context.Context, id int64) (*domain.Voter, error) {
	voter, err := s.repos.Voters.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load voter", err)
	}
	if voter == nil {
		return nil, errors.NewNotFoundError("Voter not found")
	}
	return voter, nil
}

// ParseVoterCSV reads name,reg_no rows.
func ParseVoterCSV(r io.Reader) ([]domain.VoterRow, error) {
	records, err := readCSV(r, "name", "reg_no")
	if err != nil {
		return nil, err
	}
	rows := make([]domain.VoterRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.VoterRow{Line: rec.Line, Name: rec.get("name"), RegNo: rec.get("reg_no")})
	}
	return rows, nil
}

func validateVoterRow(row domain.VoterRow) error {
	return validation.ValidateStruct(&row,
		validation.Field(&row.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&row.RegNo, validation.Required, validation.Length(1, 20)),
	)
}

// ImportCSV creates voters for unknown registration numbers. It refuses to
// run while voting is Active unless forced.
func (s *VoterService) ImportCSV(ctx context.Context, r io.Reader, opts VoterImportOptions, now time.Time) (*domain.ImportSummary, error) {
	status, _, err := s.settings.Status(ctx, now)
	if err != nil {
		return nil, err
	}
	if status == domain.StatusActive && !opts.Force {
		return nil, errors.NewConflictError("Voting is in progress; importing voters now requires force")
	}

	rows, err := ParseVoterCSV(r)
	if err != nil {
		return nil, err
	}

	summary := &domain.ImportSummary{}
	for _, row := range rows {
		if err := validateVoterRow(row); err != nil {
			summary.AddError(fmt.Sprintf("Row %d: missing or invalid name or reg_no: %v", row.Line, err))
			continue
		}

		existing, err := s.repos.Voters.GetByRegNo(ctx, row.RegNo)
		if err != nil {
			return summary, errors.NewInternalError("Failed to look up voter", err)
		}

		switch {
		case existing == nil:
			if err := s.repos.Voters.Create(ctx, domain.NewVoter(row.Name, row.RegNo)); err != nil {
				if stderrors.Is(err, repository.ErrDuplicateKey) {
					summary.AddError(fmt.Sprintf("Row %d: %v", row.Line, err))
					continue
				}
				return summary, errors.NewInternalError("Failed to create voter", err)
			}
			summary.Created++
		case opts.Update && existing.Name != row.Name:
			if err := s.repos.Voters.UpdateName(ctx, existing.ID, row.Name); err != nil {
				return summary, errors.NewInternalError("Failed to update voter", err)
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
	}).Info("Voter import completed")

	if summary.Created > 0 {
		s.cache.InvalidateResults()
	}
	return summary, nil
}

// ExportCSV writes voters ordered by name and returns how many were written.
func (s *VoterService) ExportCSV(ctx context.Context, w io.Writer, opts domain.ExportOptions) (int, error) {
	voters, err := s.repos.Voters.List(ctx)
	if err != nil {
		return 0, errors.NewInternalError("Failed to list voters", err)
	}

	writer := csv.NewWriter(w)
	if opts.TokensOnly {
		_ = writer.Write([]string{"Registration Number", "Token"})
	} else {
		_ = writer.Write([]string{"Name", "Registration Number", "Token", "Has Voted", "Voted At"})
	}

	count := 0
	for _, v := range voters {
		if v.HasVoted && !opts.IncludeVoted {
			continue
		}
		if opts.TokensOnly {
			_ = writer.Write([]string{v.RegNo, v.Token.String()})
		} else {
			_ = writer.Write([]string{v.Name, v.RegNo, v.Token.String(), yesNo(v.HasVoted), formatVotedAt(v.VotedAt)})
		}
		count++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, fmt.Errorf("write voters csv: %w", err)
	}
	return count, nil
}

// Reset deletes the voter's votes and makes them eligible again.
func (s *VoterService) Reset(ctx context.Context, voterID int64) (int, error) {
	removed, err := s.repos.Ballots.ResetVoter(ctx, voterID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return 0, errors.NewNotFoundError("Voter not found")
	}
	if err != nil {
		s.logger.WithError(err).WithField("voter_id", voterID).Error("Failed to reset voter")
		return 0, errors.NewInternalError("Failed to reset voter", err)
	}

	s.cache.InvalidateResults()
	s.logger.WithFields(map[string]interface{}{
		"voter_id":      voterID,
		"votes_removed": removed,
	}).Warn("Voter voting status reset")
	return removed, nil
}

func (s *VoterService) ResetByRegNo(ctx context.Context, regNo string) (int, error) {
	voter, err := s.repos.Voters.GetByRegNo(ctx, strings.TrimSpace(regNo))
	if err != nil {
		return 0, errors.NewInternalError("Failed to load voter", err)
	}
	if voter == nil {
		return 0, errors.NewNotFoundError("Voter not found")
	}
	return s.Reset(ctx, voter.ID)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatVotedAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportTimeLayout)
}

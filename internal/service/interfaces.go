package service

import (
	"context"
	"io"
	"time"

	"class-election/internal/domain"
)

// BallotCaster validates and commits ballots
type BallotCaster interface {
	// ValidateAndCommit is the single entry point for casting a ballot.
	// Rejections come back as an outcome; the error is reserved for
	// storage failures that indicate corrupted data.
	ValidateAndCommit(ctx context.Context, req domain.BallotRequest) (*domain.BallotOutcome, error)
}

// ResultsReader exposes the read-only election views
type ResultsReader interface {
	Status(ctx context.Context, now time.Time) (domain.VotingStatus, error)
	Overview(ctx context.Context, now time.Time) (*domain.StatusOverview, error)
	Ballot(ctx context.Context) ([]domain.BallotPosition, error)

	// GetResults returns the tally snapshot, for one position when positionID is set.
	GetResults(ctx context.Context, positionID *int64, now time.Time) (*domain.ResultsSnapshot, error)
	LiveResults(ctx context.Context, positionID *int64, now time.Time) (*domain.ResultsSnapshot, error)
	FinalResults(ctx context.Context, now time.Time) (*domain.FinalResults, error)
}

// VoterManager covers voter login and administration
type VoterManager interface {
	Authenticate(ctx context.Context, token string) (*domain.Voter, error)
	Get(ctx context.Context, id int64) (*domain.Voter, error)
	ImportCSV(ctx context.Context, r io.Reader, opts VoterImportOptions, now time.Time) (*domain.ImportSummary, error)
	ExportCSV(ctx context.Context, w io.Writer, opts domain.ExportOptions) (int, error)
	Reset(ctx context.Context, voterID int64) (int, error)
	ResetByRegNo(ctx context.Context, regNo string) (int, error)
}

// CandidateManager covers candidate imports and photos
type CandidateManager interface {
	ImportCSV(ctx context.Context, r io.Reader, opts CandidateImportOptions) (*domain.ImportSummary, error)
	UploadPhoto(ctx context.Context, candidateID int64, filename string, data []byte) (*domain.Candidate, error)
	DeletePhoto(ctx context.Context, candidateID int64) error
	PhotoStorageConfigured() bool
	SetActive(ctx context.Context, candidateID int64, active bool) (*domain.Candidate, error)
}

// PositionManager creates positions and controls which are on the ballot
type PositionManager interface {
	Create(ctx context.Context, in PositionInput) (*domain.Position, error)
	SetActive(ctx context.Context, id int64, active bool) (*domain.Position, error)
}

// SettingsManager owns the election settings row
type SettingsManager interface {
	Get(ctx context.Context) (*domain.ElectionSettings, error)
	Update(ctx context.Context, update SettingsUpdate) (*domain.ElectionSettings, error)
	VerifyAuditCredentials(ctx context.Context, password, accessCode string) error
}

// AuditReader lists the vote audit trail
type AuditReader interface {
	Trail(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error)
}

// PhotoStore persists candidate photos outside the database.
type PhotoStore interface {
	IsConfigured() bool

	// Upload creates or replaces the file at path and returns its public URL.
	Upload(ctx context.Context, path string, content []byte, message string) (string, error)
	Delete(ctx context.Context, path string, message string) error
}

// Services aggregates all service interfaces
type Services struct {
	Ballots    BallotCaster
	Results    ResultsReader
	Voters     VoterManager
	Candidates CandidateManager
	Positions  PositionManager
	Settings   SettingsManager
	Audit      AuditReader
}

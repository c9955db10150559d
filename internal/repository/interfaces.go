package repository

import (
	"context"
	"time"

	"class-election/internal/domain"

	"github.com/google/uuid"
)

// Lookups return (nil, nil) when the record does not exist.

// VoterRepository defines voter persistence
type VoterRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Voter, error)
	GetByToken(ctx context.Context, token uuid.UUID) (*domain.Voter, error)
	GetByRegNo(ctx context.Context, regNo string) (*domain.Voter, error)

	// Create inserts the voter; a taken reg_no or token returns ErrDuplicateKey.
	Create(ctx context.Context, voter *domain.Voter) error
	UpdateName(ctx context.Context, id int64, name string) error

	// List returns voters ordered by name.
	List(ctx context.Context) ([]domain.Voter, error)
	Turnout(ctx context.Context) (domain.Turnout, error)
}

// PositionRepository defines position persistence
type PositionRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Position, error)

	// GetByTitle matches the title case-insensitively.
	GetByTitle(ctx context.Context, title string) (*domain.Position, error)
	ListActive(ctx context.Context) ([]domain.Position, error)

	// Create inserts the position; a taken title returns ErrDuplicateKey.
	Create(ctx context.Context, position *domain.Position) error

	// SetActive returns ErrNotFound for an unknown id.
	SetActive(ctx context.Context, id int64, active bool) error
}

// CandidateRepository defines candidate persistence. Candidates are returned
// with PositionIDs populated.
type CandidateRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Candidate, error)

	// GetByRegNo returns the oldest candidate with the registration number.
	GetByRegNo(ctx context.Context, regNo string) (*domain.Candidate, error)
	ListActiveForPosition(ctx context.Context, positionID int64) ([]domain.Candidate, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Candidate, error)

	// Create inserts the candidate and links it to PositionIDs.
	Create(ctx context.Context, candidate *domain.Candidate) error
	Update(ctx context.Context, candidate *domain.Candidate) error

	// LinkPosition is idempotent.
	LinkPosition(ctx context.Context, candidateID, positionID int64) error
	SetPhotoURL(ctx context.Context, candidateID int64, url string) error

	// SetActive returns ErrNotFound for an unknown id.
	SetActive(ctx context.Context, candidateID int64, active bool) error
}

// VoteRepository defines read access to committed votes
type VoteRepository interface {
	ExistsForVoterPosition(ctx context.Context, voterID, positionID int64) (bool, error)

	// CountByPosition returns vote counts keyed by candidate id. Candidates
	// without votes are absent.
	CountByPosition(ctx context.Context, positionID int64) (map[int64]int, error)

	// ListAudit returns votes newest first.
	ListAudit(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error)
}

// BallotStore owns the write path for votes. Each method is one atomic unit.
type BallotStore interface {
	// CommitBallot inserts the votes and marks the voter as voted at the
	// given instant. It returns the new vote ids in the order of votes.
	// ErrVoterConsumed: the voter was already marked.
	// ErrDuplicateVote: the (voter, position) uniqueness guard fired.
	// ErrIntegrity: any other storage constraint failed.
	CommitBallot(ctx context.Context, voterID int64, votes []domain.Vote, at time.Time) ([]int64, error)

	// ResetVoter deletes the voter's votes and clears has_voted/voted_at.
	// It returns the number of votes removed.
	ResetVoter(ctx context.Context, voterID int64) (int, error)
}

// SettingsRepository persists the single election settings row.
type SettingsRepository interface {
	// GetOrCreate returns the settings row, inserting defaults if none exists.
	GetOrCreate(ctx context.Context, defaults *domain.ElectionSettings) (*domain.ElectionSettings, error)

	// Save upserts the row with id 1; it never creates a second row.
	Save(ctx context.Context, settings *domain.ElectionSettings) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Voters     VoterRepository
	Positions  PositionRepository
	Candidates CandidateRepository
	Votes      VoteRepository
	Ballots    BallotStore
	Settings   SettingsRepository
}

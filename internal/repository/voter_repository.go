package repository

import (
	"context"
	"errors"
	"fmt"

	"class-election/internal/domain"
	"class-election/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type VoterRepositoryPG struct {
	db *database.PostgresDB
}

func NewVoterRepository(db *database.PostgresDB) *VoterRepositoryPG {
	return &VoterRepositoryPG{db: db}
}

const voterColumns = `id, name, reg_no, token, has_voted, voted_at, created_at, updated_at`

func scanVoter(row pgx.Row) (*domain.Voter, error) {
	var v domain.Voter
	err := row.Scan(&v.ID, &v.Name, &v.RegNo, &v.Token, &v.HasVoted, &v.VotedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoterRepositoryPG) getOne(ctx context.Context, where string, arg interface{}) (*domain.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE ` + where
	v, err := scanVoter(r.db.Pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return v, nil
}

// GetByID gets a voter by primary key
func (r *VoterRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Voter, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByToken gets a voter by login token
func (r *VoterRepositoryPG) GetByToken(ctx context.Context, token uuid.UUID) (*domain.Voter, error) {
	return r.getOne(ctx, `token = $1`, token)
}

// GetByRegNo gets a voter by registration number
func (r *VoterRepositoryPG) GetByRegNo(ctx context.Context, regNo string) (*domain.Voter, error) {
	return r.getOne(ctx, `reg_no = $1`, regNo)
}

// Create inserts a voter, generating a token when none is set
func (r *VoterRepositoryPG) Create(ctx context.Context, voter *domain.Voter) error {
	if voter.Token == uuid.Nil {
		voter.Token = uuid.New()
	}

	query := `
		INSERT INTO voters (name, reg_no, token)
		VALUES ($1, $2, $3)
		RETURNING id, has_voted, voted_at, created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query, voter.Name, voter.RegNo, voter.Token).
		Scan(&voter.ID, &voter.HasVoted, &voter.VotedAt, &voter.CreatedAt, &voter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create voter: %w", classifyError(err))
	}
	return nil
}

// UpdateName renames a voter
func (r *VoterRepositoryPG) UpdateName(ctx context.Context, id int64, name string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE voters SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("failed to update voter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every voter ordered by name
func (r *VoterRepositoryPG) List(ctx context.Context) ([]domain.Voter, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+voterColumns+` FROM voters ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	var voters []domain.Voter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}
	return voters, nil
}

// Turnout counts all voters and those who voted in one scan
func (r *VoterRepositoryPG) Turnout(ctx context.Context) (domain.Turnout, error) {
	var t domain.Turnout
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE has_voted) FROM voters`
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&t.TotalVoters, &t.TotalVoted); err != nil {
		return domain.Turnout{}, fmt.Errorf("failed to count voters: %w", err)
	}
	return t, nil
}

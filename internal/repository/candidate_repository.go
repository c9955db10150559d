package repository

import (
	"context"
	"errors"
	"fmt"

	"class-election/internal/domain"
	"class-election/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type CandidateRepositoryPG struct {
	db *database.PostgresDB
}

func NewCandidateRepository(db *database.PostgresDB) *CandidateRepositoryPG {
	return &CandidateRepositoryPG{db: db}
}

const candidateSelect = `
	SELECT c.id, c.name, c.reg_no, COALESCE(c.bio, ''), COALESCE(c.photo_url, ''), c.is_active,
	       COALESCE(array_agg(cp.position_id ORDER BY cp.position_id)
	                FILTER (WHERE cp.position_id IS NOT NULL), '{}') AS position_ids,
	       c.created_at, c.updated_at
	FROM candidates c
	LEFT JOIN candidate_positions cp ON cp.candidate_id = c.id
`

func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var c domain.Candidate
	err := row.Scan(&c.ID, &c.Name, &c.RegNo, &c.Bio, &c.PhotoURL, &c.IsActive, &c.PositionIDs, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CandidateRepositoryPG) list(ctx context.Context, query string, args ...interface{}) ([]domain.Candidate, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// GetByID gets a candidate with its linked positions
func (r *CandidateRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	query := candidateSelect + ` WHERE c.id = $1 GROUP BY c.id`
	c, err := scanCandidate(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// GetByRegNo gets the oldest candidate registered under regNo
func (r *CandidateRepositoryPG) GetByRegNo(ctx context.Context, regNo string) (*domain.Candidate, error) {
	query := candidateSelect + ` WHERE c.reg_no = $1 GROUP BY c.id ORDER BY c.id LIMIT 1`
	c, err := scanCandidate(r.db.Pool.QueryRow(ctx, query, regNo))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate by reg_no: %w", err)
	}
	return c, nil
}

// ListActiveForPosition returns active candidates linked to the position
func (r *CandidateRepositoryPG) ListActiveForPosition(ctx context.Context, positionID int64) ([]domain.Candidate, error) {
	query := candidateSelect + `
		WHERE c.is_active
		  AND EXISTS (SELECT 1 FROM candidate_positions x WHERE x.candidate_id = c.id AND x.position_id = $1)
		GROUP BY c.id
		ORDER BY c.id`
	return r.list(ctx, query, positionID)
}

// ListByIDs returns the candidates with the given ids, ordered by id
func (r *CandidateRepositoryPG) ListByIDs(ctx context.Context, ids []int64) ([]domain.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := candidateSelect + ` WHERE c.id = ANY($1) GROUP BY c.id ORDER BY c.id`
	return r.list(ctx, query, ids)
}

// Create inserts a candidate and its position links in one transaction
func (r *CandidateRepositoryPG) Create(ctx context.Context, candidate *domain.Candidate) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO candidates (name, reg_no, bio, photo_url, is_active)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query, candidate.Name, candidate.RegNo, candidate.Bio, candidate.PhotoURL, candidate.IsActive).
			Scan(&candidate.ID, &candidate.CreatedAt, &candidate.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create candidate: %w", classifyError(err))
		}

		for _, positionID := range candidate.PositionIDs {
			if err := linkPosition(ctx, tx, candidate.ID, positionID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update saves name, bio and active flag
func (r *CandidateRepositoryPG) Update(ctx context.Context, candidate *domain.Candidate) error {
	query := `
		UPDATE candidates
		SET name = $2, bio = NULLIF($3, ''), is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query, candidate.ID, candidate.Name, candidate.Bio, candidate.IsActive).
		Scan(&candidate.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	return nil
}

// LinkPosition adds the candidate to a position if not already linked
func (r *CandidateRepositoryPG) LinkPosition(ctx context.Context, candidateID, positionID int64) error {
	return linkPosition(ctx, r.db.Pool, candidateID, positionID)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func linkPosition(ctx context.Context, db execer, candidateID, positionID int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO candidate_positions (candidate_id, position_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, candidateID, positionID)
	if err != nil {
		return fmt.Errorf("failed to link candidate %d to position %d: %w", candidateID, positionID, classifyError(err))
	}
	return nil
}

// SetPhotoURL stores the resolved display URL; empty clears it
func (r *CandidateRepositoryPG) SetPhotoURL(ctx context.Context, candidateID int64, url string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE candidates SET photo_url = NULLIF($2, ''), updated_at = NOW() WHERE id = $1`, candidateID, url)
	if err != nil {
		return fmt.Errorf("failed to set candidate photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CandidateRepositoryPG) SetActive(ctx context.Context, candidateID int64, active bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE candidates SET is_active = $2, updated_at = NOW() WHERE id = $1`, candidateID, active)
	if err != nil {
		return fmt.Errorf("failed to set candidate active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"class-election/internal/domain"
	"class-election/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PositionRepositoryPG struct {
	db *database.PostgresDB
}

func NewPositionRepository(db *database.PostgresDB) *PositionRepositoryPG {
	return &PositionRepositoryPG{db: db}
}

const positionColumns = `id, title, COALESCE(description, ''), start_time, end_time, is_active, created_at, updated_at`

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.StartTime, &p.EndTime, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID gets a position by id
func (r *PositionRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Position, error) {
	p, err := scanPosition(r.db.Pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetByTitle gets a position by case-insensitive title
func (r *PositionRepositoryPG) GetByTitle(ctx context.Context, title string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE LOWER(title) = LOWER($1) ORDER BY id LIMIT 1`
	p, err := scanPosition(r.db.Pool.QueryRow(ctx, query, title))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position by title: %w", err)
	}
	return p, nil
}

// ListActive returns active positions ordered by id
func (r *PositionRepositoryPG) ListActive(ctx context.Context) ([]domain.Position, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+positionColumns+` FROM positions WHERE is_active ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

// Create inserts a position
func (r *PositionRepositoryPG) Create(ctx context.Context, position *domain.Position) error {
	query := `
		INSERT INTO positions (title, description, is_active)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query, position.Title, position.Description, position.IsActive).
		Scan(&position.ID, &position.CreatedAt, &position.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", classifyError(err))
	}
	return nil
}

// SetActive shows or hides a position on the ballot
func (r *PositionRepositoryPG) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE positions SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set position active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"class-election/internal/domain"
	"class-election/pkg/database"

	"github.com/jackc/pgx/v5"
)

type SettingsRepositoryPG struct {
	db *database.PostgresDB
}

func NewSettingsRepository(db *database.PostgresDB) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{db: db}
}

const settingsColumns = `id, election_title, COALESCE(election_description, ''), is_election_active,
	show_live_results, results_refresh_interval, COALESCE(technical_head_email, ''),
	audit_password_hash, audit_access_code, voting_start_time, voting_end_time, created_at, updated_at`

func (r *SettingsRepositoryPG) get(ctx context.Context) (*domain.ElectionSettings, error) {
	var s domain.ElectionSettings
	err := r.db.Pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM election_settings WHERE id = $1`, domain.SettingsID).Scan(
		&s.ID, &s.ElectionTitle, &s.ElectionDescription, &s.IsElectionActive,
		&s.ShowLiveResults, &s.ResultsRefreshInterval, &s.TechnicalHeadEmail,
		&s.AuditPasswordHash, &s.AuditAccessCode, &s.VotingStartTime, &s.VotingEndTime,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get election settings: %w", err)
	}
	return &s, nil
}

// GetOrCreate reads the settings row, inserting defaults on first access
func (r *SettingsRepositoryPG) GetOrCreate(ctx context.Context, defaults *domain.ElectionSettings) (*domain.ElectionSettings, error) {
	s, err := r.get(ctx)
	if err != nil || s != nil {
		return s, err
	}

	// Two first requests can race here; ON CONFLICT keeps a single row.
	if err := r.insert(ctx, defaults, `ON CONFLICT (id) DO NOTHING`); err != nil {
		return nil, err
	}
	return r.get(ctx)
}

// Save upserts the single settings row
func (r *SettingsRepositoryPG) Save(ctx context.Context, settings *domain.ElectionSettings) error {
	settings.ID = domain.SettingsID
	return r.insert(ctx, settings, `
		ON CONFLICT (id) DO UPDATE SET
			election_title = EXCLUDED.election_title,
			election_description = EXCLUDED.election_description,
			is_election_active = EXCLUDED.is_election_active,
			show_live_results = EXCLUDED.show_live_results,
			results_refresh_interval = EXCLUDED.results_refresh_interval,
			technical_head_email = EXCLUDED.technical_head_email,
			audit_password_hash = EXCLUDED.audit_password_hash,
			audit_access_code = EXCLUDED.audit_access_code,
			voting_start_time = EXCLUDED.voting_start_time,
			voting_end_time = EXCLUDED.voting_end_time,
			updated_at = NOW()`)
}

func (r *SettingsRepositoryPG) insert(ctx context.Context, s *domain.ElectionSettings, onConflict string) error {
	query := `
		INSERT INTO election_settings (
			id, election_title, election_description, is_election_active, show_live_results,
			results_refresh_interval, technical_head_email, audit_password_hash, audit_access_code,
			voting_start_time, voting_end_time
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11)
		` + onConflict

	_, err := r.db.Pool.Exec(ctx, query,
		domain.SettingsID,
		s.ElectionTitle,
		s.ElectionDescription,
		s.IsElectionActive,
		s.ShowLiveResults,
		s.ResultsRefreshInterval,
		s.TechnicalHeadEmail,
		s.AuditPasswordHash,
		s.AuditAccessCode,
		s.VotingStartTime,
		s.VotingEndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save election settings: %w", classifyError(err))
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"class-election/internal/domain"
	"class-election/pkg/database"
)

type VoteRepositoryPG struct {
	db *database.PostgresDB
}

func NewVoteRepository(db *database.PostgresDB) *VoteRepositoryPG {
	return &VoteRepositoryPG{db: db}
}

// ExistsForVoterPosition reports whether the voter already voted for the position
func (r *VoteRepositoryPG) ExistsForVoterPosition(ctx context.Context, voterID, positionID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE voter_id = $1 AND position_id = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, voterID, positionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return exists, nil
}

// CountByPosition counts votes per candidate for one position
func (r *VoteRepositoryPG) CountByPosition(ctx context.Context, positionID int64) (map[int64]int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT candidate_id, COUNT(*)
		FROM votes
		WHERE position_id = $1
		GROUP BY candidate_id`, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var candidateID int64
		var n int
		if err := rows.Scan(&candidateID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[candidateID] = n
	}
	return counts, rows.Err()
}

// ListAudit returns the vote trail newest first
func (r *VoteRepositoryPG) ListAudit(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.PositionID != nil {
		args = append(args, *filter.PositionID)
		conds = append(conds, fmt.Sprintf("v.position_id = $%d", len(args)))
	}
	if needle := strings.TrimSpace(filter.Voter); needle != "" {
		args = append(args, "%"+escapeLike(needle)+"%")
		conds = append(conds, fmt.Sprintf("(vt.name ILIKE $%d OR vt.reg_no ILIKE $%d)", len(args), len(args)))
	}

	query := `
		SELECT v.id, v.voter_id, v.position_id, v.candidate_id, v.voted_at, COALESCE(host(v.ip_address), ''),
		       vt.name, vt.reg_no, p.title, c.name
		FROM votes v
		JOIN voters vt ON vt.id = v.voter_id
		JOIN positions p ON p.id = v.position_id
		JOIN candidates c ON c.id = v.candidate_id`
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	query += "\nORDER BY v.voted_at DESC, v.id DESC"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit trail: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.VoterID, &e.PositionID, &e.CandidateID, &e.VotedAt, &e.IPAddress,
			&e.VoterName, &e.VoterRegNo, &e.PositionTitle, &e.CandidateName); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

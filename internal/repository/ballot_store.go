package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"class-election/internal/domain"
	"class-election/pkg/database"

	"github.com/jackc/pgx/v5"
)

type BallotStorePG struct {
	db *database.PostgresDB
}

func NewBallotStore(db *database.PostgresDB) *BallotStorePG {
	return &BallotStorePG{db: db}
}

// CommitBallot locks the voter row, inserts every vote and marks the voter,
// all in one transaction. Concurrent submissions by the same voter queue on
// the row lock; the loser sees has_voted and gets ErrVoterConsumed. The
// uq_votes_voter_position constraint stays the final guard.
func (s *BallotStorePG) CommitBallot(ctx context.Context, voterID int64, votes []domain.Vote, at time.Time) ([]int64, error) {
	ids := make([]int64, 0, len(votes))

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var hasVoted bool
		err := tx.QueryRow(ctx, `SELECT has_voted FROM voters WHERE id = $1 FOR UPDATE`, voterID).Scan(&hasVoted)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: voter %d does not exist", ErrIntegrity, voterID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock voter: %w", err)
		}
		if hasVoted {
			return ErrVoterConsumed
		}

		for _, v := range votes {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO votes (voter_id, position_id, candidate_id, voted_at, ip_address)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				voterID, v.PositionID, v.CandidateID, at, ipOrNil(v.IPAddress),
			).Scan(&id)
			if err != nil {
				return classifyError(err)
			}
			ids = append(ids, id)
		}

		_, err = tx.Exec(ctx, `
			UPDATE voters SET has_voted = true, voted_at = $2, updated_at = NOW()
			WHERE id = $1`, voterID, at)
		if err != nil {
			return fmt.Errorf("failed to mark voter as voted: %w", classifyError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ResetVoter removes the voter's votes and makes them eligible again
func (s *BallotStorePG) ResetVoter(ctx context.Context, voterID int64) (int, error) {
	var removed int
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE voters SET has_voted = false, voted_at = NULL, updated_at = NOW() WHERE id = $1`, voterID)
		if err != nil {
			return fmt.Errorf("failed to reset voter: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		tag, err = tx.Exec(ctx, `DELETE FROM votes WHERE voter_id = $1`, voterID)
		if err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		removed = int(tag.RowsAffected())
		return nil
	})
	return removed, err
}

// ipOrNil stores unparseable addresses as NULL rather than failing the ballot.
func ipOrNil(ip string) interface{} {
	if parsed := net.ParseIP(ip); parsed != nil {
		return parsed.String()
	}
	return nil
}

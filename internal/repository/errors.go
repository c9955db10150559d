package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrDuplicateVote = errors.New("vote already recorded for voter and position")
	ErrVoterConsumed = errors.New("voter has already voted")
	ErrIntegrity     = errors.New("storage integrity violation")
)

// Constraint names the store relies on; see SchemaStatements.
const (
	ConstraintVoteVoterPosition = "uq_votes_voter_position"
	ConstraintVoteCandidateLink = "fk_votes_candidate_position"
	ConstraintVoterRegNo        = "voters_reg_no_key"
	ConstraintVoterToken        = "voters_token_key"
	ConstraintPositionTitle     = "positions_title_key"
)

// classifyError maps Postgres constraint failures onto repository sentinels.
// Errors that are not constraint violations are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == ConstraintVoteVoterPosition:
		return fmt.Errorf("%w: %s", ErrDuplicateVote, pgErr.Detail)
	case pgErr.Code == pgerrcode.UniqueViolation &&
		(pgErr.ConstraintName == ConstraintVoterRegNo ||
			pgErr.ConstraintName == ConstraintVoterToken ||
			pgErr.ConstraintName == ConstraintPositionTitle):
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return fmt.Errorf("%w: %s (%s): %s", ErrIntegrity, pgErr.ConstraintName, pgErr.Code, pgErr.Message)
	}
	return err
}

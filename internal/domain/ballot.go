package domain

import (
	"fmt"
	"sort"
	"time"
)

// Selections maps a position id to the chosen candidate id.
type Selections map[int64]int64

// PositionIDs returns the selected positions in ascending order so that
// validation always reports the same offending position.
func (s Selections) PositionIDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BallotRequest is one submission by one voter.
type BallotRequest struct {
	VoterID    int64
	Selections Selections
	ClientIP   string
	Now        time.Time
}

// RejectionKind enumerates why a ballot was not accepted.
type RejectionKind string

const (
	RejectAlreadyVoted             RejectionKind = "already_voted"
	RejectVotingNotOpen            RejectionKind = "voting_not_open"
	RejectNoSelections             RejectionKind = "no_selections"
	RejectInvalidSelection         RejectionKind = "invalid_selection"
	RejectDuplicateVoteForPosition RejectionKind = "duplicate_vote_for_position"
	RejectConcurrentConflict       RejectionKind = "concurrent_conflict"
	RejectNotFound                 RejectionKind = "not_found"
)

// Rejection is a recoverable, user-facing refusal of a ballot.
type Rejection struct {
	Kind          RejectionKind
	State         VotingStatus
	PositionID    int64
	PositionTitle string
	Entity        string
	Detail        string
}

// Message renders the rejection for the voter.
func (r *Rejection) Message() string {
	switch r.Kind {
	case RejectAlreadyVoted:
		return "You have already voted"
	case RejectVotingNotOpen:
		switch r.State {
		case StatusNotStarted:
			return "Voting has not started yet"
		case StatusEnded:
			return "Voting has ended. Your vote cannot be processed."
		default:
			return "Voting is not available at this time"
		}
	case RejectNoSelections:
		return "No votes selected"
	case RejectInvalidSelection:
		if r.Detail != "" {
			return r.Detail
		}
		return fmt.Sprintf("Invalid selection for %s", r.positionName())
	case RejectDuplicateVoteForPosition:
		return fmt.Sprintf("You have already voted for %s", r.positionName())
	case RejectConcurrentConflict:
		return "Your ballot conflicted with another submission; please reload and check your voting status"
	case RejectNotFound:
		return fmt.Sprintf("%s not found", r.Entity)
	}
	return "Ballot rejected"
}

func (r *Rejection) positionName() string {
	if r.PositionTitle != "" {
		return r.PositionTitle
	}
	return fmt.Sprintf("position %d", r.PositionID)
}

// BallotOutcome is the single result shape of validate-and-commit.
type BallotOutcome struct {
	Success   bool          `json:"success"`
	ErrorKind RejectionKind `json:"error_kind,omitempty"`
	State     string        `json:"state,omitempty"`
	Position  *int64        `json:"position_id,omitempty"`
	Message   string        `json:"message"`
	VoteIDs   []int64       `json:"vote_ids,omitempty"`
	VotedAt   *time.Time    `json:"voted_at,omitempty"`
}

// Accepted builds a successful outcome.
func Accepted(voteIDs []int64, at time.Time) *BallotOutcome {
	return &BallotOutcome{
		Success: true,
		Message: "Your votes have been successfully recorded!",
		VoteIDs: voteIDs,
		VotedAt: &at,
	}
}

// Rejected builds a failed outcome from a rejection.
func Rejected(r *Rejection) *BallotOutcome {
	out := &BallotOutcome{
		ErrorKind: r.Kind,
		Message:   r.Message(),
	}
	if r.Kind == RejectVotingNotOpen {
		out.State = r.State.String()
	}
	if r.PositionID != 0 {
		id := r.PositionID
		out.Position = &id
	}
	return out
}

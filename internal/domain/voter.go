package domain

import (
	"time"

	"github.com/google/uuid"
)

// Voter is an eligible voter identified by a unique registration number.
// Token is the one-time login credential and never changes after creation.
type Voter struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	RegNo     string     `json:"reg_no"`
	Token     uuid.UUID  `json:"-"`
	HasVoted  bool       `json:"has_voted"`
	VotedAt   *time.Time `json:"voted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewVoter returns a voter with a freshly generated token.
func NewVoter(name, regNo string) *Voter {
	return &Voter{
		Name:  name,
		RegNo: regNo,
		Token: uuid.New(),
	}
}

// VoterSummary is the voter view returned to an authenticated voter.
type VoterSummary struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	RegNo    string     `json:"reg_no"`
	HasVoted bool       `json:"has_voted"`
	VotedAt  *time.Time `json:"voted_at,omitempty"`
}

// Summary strips the token.
func (v *Voter) Summary() VoterSummary {
	return VoterSummary{
		ID:       v.ID,
		Name:     v.Name,
		RegNo:    v.RegNo,
		HasVoted: v.HasVoted,
		VotedAt:  v.VotedAt,
	}
}

// Turnout counts registered voters and those who have voted.
type Turnout struct {
	TotalVoters int `json:"total_voters"`
	TotalVoted  int `json:"total_voted"`
}

// Pending is the number of voters yet to vote.
func (t Turnout) Pending() int {
	return t.TotalVoters - t.TotalVoted
}

// AllVoted reports whether every registered voter has voted.
// An empty register never counts as fully voted.
func (t Turnout) AllVoted() bool {
	return t.TotalVoters > 0 && t.TotalVoted == t.TotalVoters
}

// Percentage is the turnout rounded to one decimal, 0 with no voters.
func (t Turnout) Percentage() float64 {
	if t.TotalVoters == 0 {
		return 0
	}
	return Round1(float64(t.TotalVoted) / float64(t.TotalVoters) * 100)
}

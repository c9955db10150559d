package domain

import "time"

const (
	EndReasonAllVoted    = "All eligible voters have cast their votes"
	EndReasonTimeElapsed = "Voting time period has ended"
)

// CandidateTally is one candidate's share of a position's votes.
type CandidateTally struct {
	CandidateID int64   `json:"candidate_id"`
	Name        string  `json:"name"`
	RegNo       string  `json:"reg_no"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

// PositionTally lists candidates ordered by votes descending, then id ascending.
type PositionTally struct {
	PositionID int64            `json:"position_id"`
	Title      string           `json:"position"`
	Candidates []CandidateTally `json:"candidates"`
	TotalVotes int              `json:"total_votes"`
}

// Conclusion captures whether the election is over and why.
type Conclusion struct {
	Status            VotingStatus `json:"status"`
	VotingEndedByTime bool         `json:"voting_ended_by_time"`
	AllVotersVoted    bool         `json:"all_voters_voted"`
	ElectionEnded     bool         `json:"election_ended"`
	EndReason         string       `json:"end_reason,omitempty"`
}

// Conclude applies the conclusion predicate: ended by the clock or by
// every registered voter having voted. All-voted wins as the reported reason.
func Conclude(status VotingStatus, turnout Turnout) Conclusion {
	c := Conclusion{
		Status:            status,
		VotingEndedByTime: status == StatusEnded,
		AllVotersVoted:    turnout.AllVoted(),
	}
	c.ElectionEnded = c.VotingEndedByTime || c.AllVotersVoted
	switch {
	case c.AllVotersVoted:
		c.EndReason = EndReasonAllVoted
	case c.VotingEndedByTime:
		c.EndReason = EndReasonTimeElapsed
	}
	return c
}

// ResultsSnapshot is a read-only tally of the election at one instant.
type ResultsSnapshot struct {
	Conclusion
	Positions       []PositionTally `json:"results"`
	TotalVoters     int             `json:"total_voters"`
	TotalVoted      int             `json:"total_voted"`
	PendingVoters   int             `json:"pending_voters"`
	RefreshInterval int             `json:"refresh_interval"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Winner is the leading candidate of a position with at least one vote.
type Winner struct {
	PositionID    int64  `json:"position_id"`
	PositionTitle string `json:"position"`
	CandidateID   int64  `json:"candidate_id"`
	Name          string `json:"winner_name"`
	RegNo         string `json:"winner_reg_no"`
	PhotoURL      string `json:"photo_url,omitempty"`
	Votes         int    `json:"votes"`
	TotalVotes    int    `json:"total_votes"`
	Tied          bool   `json:"tied"`
}

// FinalResults is withheld (CanShowResults false) until the election concludes.
type FinalResults struct {
	CanShowResults bool            `json:"can_show_results"`
	Winners        []Winner        `json:"winners,omitempty"`
	Positions      []PositionTally `json:"positions,omitempty"`
	TotalVoters    int             `json:"total_voters"`
	TotalVoted     int             `json:"total_voted"`
	VotingEnded    bool            `json:"voting_ended"`
	AllVotersVoted bool            `json:"all_voters_voted"`
	VotingEndTime  *time.Time      `json:"voting_end_time,omitempty"`
}

// StatusOverview is the public landing information.
type StatusOverview struct {
	ElectionTitle       string       `json:"election_title"`
	ElectionDescription string       `json:"election_description"`
	Status              VotingStatus `json:"status"`
	StatusLabel         string       `json:"status_label"`
	IsVotingOpen        bool         `json:"is_voting_open"`
	VotingStartTime     *time.Time   `json:"voting_start_time"`
	VotingEndTime       *time.Time   `json:"voting_end_time"`
	TotalVoters         int          `json:"total_voters"`
	TotalVoted          int          `json:"total_voted"`
	TurnoutPercentage   float64      `json:"turnout_percentage"`
	ActivePositions     []Position   `json:"active_positions"`
	ShowLiveResults     bool         `json:"show_live_results"`
	CurrentTime         time.Time    `json:"current_time"`
}

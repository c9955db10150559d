package domain

import "time"

// Vote is the immutable audit record of one selection on a committed ballot.
type Vote struct {
	ID          int64     `json:"id"`
	VoterID     int64     `json:"voter_id"`
	PositionID  int64     `json:"position_id"`
	CandidateID int64     `json:"candidate_id"`
	VotedAt     time.Time `json:"voted_at"`
	IPAddress   string    `json:"ip_address,omitempty"`
}

// AuditEntry is a vote joined with the names needed by the audit trail.
type AuditEntry struct {
	Vote
	VoterName     string `json:"voter_name"`
	VoterRegNo    string `json:"voter_reg_no"`
	PositionTitle string `json:"position_title"`
	CandidateName string `json:"candidate_name"`
}

// AuditFilter narrows the audit trail. Voter matches a case-insensitive
// substring of the voter name or registration number.
type AuditFilter struct {
	PositionID *int64
	Voter      string
}

package domain

import "time"

// SettingsID is the primary key of the only settings row.
const SettingsID = 1

const (
	DefaultElectionTitle          = "Class Election 2025"
	DefaultResultsRefreshInterval = 30
)

// ElectionSettings is the single configuration record for the election.
type ElectionSettings struct {
	ID                     int        `json:"-"`
	ElectionTitle          string     `json:"election_title"`
	ElectionDescription    string     `json:"election_description"`
	IsElectionActive       bool       `json:"is_election_active"`
	ShowLiveResults        bool       `json:"show_live_results"`
	ResultsRefreshInterval int        `json:"results_refresh_interval"`
	TechnicalHeadEmail     string     `json:"technical_head_email,omitempty"`
	AuditPasswordHash      string     `json:"-"`
	AuditAccessCode        string     `json:"-"`
	VotingStartTime        *time.Time `json:"voting_start_time"`
	VotingEndTime          *time.Time `json:"voting_end_time"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// DefaultSettings is what a fresh install starts with: no window, so voting
// is closed until an administrator configures one.
func DefaultSettings(auditPasswordHash, auditAccessCode string) *ElectionSettings {
	return &ElectionSettings{
		ID:                     SettingsID,
		ElectionTitle:          DefaultElectionTitle,
		IsElectionActive:       true,
		ShowLiveResults:        true,
		ResultsRefreshInterval: DefaultResultsRefreshInterval,
		AuditPasswordHash:      auditPasswordHash,
		AuditAccessCode:        auditAccessCode,
	}
}

// StatusAt computes the voting status at now.
// The window is inclusive at both ends.
func (s *ElectionSettings) StatusAt(now time.Time) VotingStatus {
	if s == nil || s.VotingStartTime == nil || s.VotingEndTime == nil {
		return StatusNotConfigured
	}
	switch {
	case now.Before(*s.VotingStartTime):
		return StatusNotStarted
	case now.After(*s.VotingEndTime):
		return StatusEnded
	default:
		return StatusActive
	}
}

// IsVotingOpen reports whether the window is Active at now.
func (s *ElectionSettings) IsVotingOpen(now time.Time) bool {
	return s.StatusAt(now) == StatusActive
}

// IsVotingEnded reports whether the window has closed at now.
func (s *ElectionSettings) IsVotingEnded(now time.Time) bool {
	return s.StatusAt(now) == StatusEnded
}

// RefreshInterval returns the live results refresh period.
func (s *ElectionSettings) RefreshInterval() time.Duration {
	if s.ResultsRefreshInterval <= 0 {
		return DefaultResultsRefreshInterval * time.Second
	}
	return time.Duration(s.ResultsRefreshInterval) * time.Second
}

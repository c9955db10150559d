package domain

import "time"

// Position is a contest on the ballot. StartTime and EndTime are kept for
// old data only; the voting window always comes from ElectionSettings.
type Position struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   *time.Time `json:"-"`
	EndTime     *time.Time `json:"-"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BallotPosition is a position together with the candidates that can
// receive votes for it.
type BallotPosition struct {
	Position   Position    `json:"position"`
	Candidates []Candidate `json:"candidates"`
}

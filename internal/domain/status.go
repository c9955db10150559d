package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// VotingStatus is the global state of the voting window at a given instant.
// It is derived from the clock on every call and never stored.
type VotingStatus int

const (
	StatusNotConfigured VotingStatus = iota
	StatusNotStarted
	StatusActive
	StatusEnded
)

var statusCodes = map[VotingStatus]string{
	StatusNotConfigured: "not_configured",
	StatusNotStarted:    "not_started",
	StatusActive:        "active",
	StatusEnded:         "ended",
}

var statusLabels = map[VotingStatus]string{
	StatusNotConfigured: "Not Configured",
	StatusNotStarted:    "Not Started",
	StatusActive:        "Active",
	StatusEnded:         "Ended",
}

// String returns the machine code, e.g. "not_started".
func (s VotingStatus) String() string {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return "unknown"
}

// Label returns the human label shown on pages, e.g. "Not Started".
func (s VotingStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

func (s VotingStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *VotingStatus) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	for status, c := range statusCodes {
		if c == code {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown voting status %q", code)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

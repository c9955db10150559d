package domain

// ImportSummary reports the effect of a CSV import.
type ImportSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// AddError appends a row error.
func (s *ImportSummary) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// VoterRow is one line of a voter import file.
type VoterRow struct {
	Line  int
	Name  string
	RegNo string
}

// CandidateRow is one line of a candidate import file.
type CandidateRow struct {
	Line     int
	Name     string
	RegNo    string
	Bio      string
	Position string
}

// ExportOptions controls the voter CSV export.
type ExportOptions struct {
	IncludeVoted bool
	TokensOnly   bool
}

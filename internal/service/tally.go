package service

import (
	"sort"

	"class-election/internal/domain"
)

// BuildPositionTally counts votes for the listed candidates of a position.
// TotalVotes covers every vote cast for the position, including votes for
// candidates that are no longer listed.
func BuildPositionTally(position domain.Position, candidates []domain.Candidate, counts map[int64]int) domain.PositionTally {
	total := 0
	for _, n := range counts {
		total += n
	}

	tally := domain.PositionTally{
		PositionID: position.ID,
		Title:      position.Title,
		Candidates: make([]domain.CandidateTally, 0, len(candidates)),
		TotalVotes: total,
	}
	for _, c := range candidates {
		votes := counts[c.ID]
		tally.Candidates = append(tally.Candidates, domain.CandidateTally{
			CandidateID: c.ID,
			Name:        c.Name,
			RegNo:       c.RegNo,
			PhotoURL:    c.PhotoURL,
			Votes:       votes,
			Percentage:  percentage(votes, total),
		})
	}
	SortTallies(tally.Candidates)
	return tally
}

// SortTallies orders by votes descending, then candidate id ascending.
func SortTallies(list []domain.CandidateTally) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Votes != list[j].Votes {
			return list[i].Votes > list[j].Votes
		}
		return list[i].CandidateID < list[j].CandidateID
	})
}

// DetermineWinner returns the leader of a sorted tally, or nil when the
// position received no votes.
func DetermineWinner(t domain.PositionTally) *domain.Winner {
	if len(t.Candidates) == 0 || t.Candidates[0].Votes == 0 {
		return nil
	}
	top := t.Candidates[0]
	return &domain.Winner{
		PositionID:    t.PositionID,
		PositionTitle: t.Title,
		CandidateID:   top.CandidateID,
		Name:          top.Name,
		RegNo:         top.RegNo,
		PhotoURL:      top.PhotoURL,
		Votes:         top.Votes,
		TotalVotes:    t.TotalVotes,
		Tied:          len(t.Candidates) > 1 && t.Candidates[1].Votes == top.Votes,
	}
}

func percentage(votes, total int) float64 {
	if total == 0 {
		return 0
	}
	return domain.Round1(float64(votes) / float64(total) * 100)
}

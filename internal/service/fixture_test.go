package service

import (
	"context"
	"testing"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/internal/repository/memory"
	"class-election/pkg/logger"

	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	duringVote  = windowStart.Add(time.Hour)
)

// fixture is a small election: President (Alice, Bob) and Secretary
// (Carol). Bob does not contest Secretary.
type fixture struct {
	store    *memory.Store
	repos    *repository.Repositories
	cache    *CacheService
	settings *SettingsService
	ballots  *BallotService
	results  *ResultsService
	voters   *VoterService

	president domain.Position
	secretary domain.Position
	alice     domain.Candidate
	bob       domain.Candidate
	carol     domain.Candidate
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, NewCacheService(nil, 0, nil))
}

func newFixtureWithCache(t *testing.T, cache *CacheService) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	store := memory.NewStore()
	repos := store.Repositories()
	settings := NewSettingsService(repos.Settings, "audit2025", "AUDIT-CODE", log)

	f := &fixture{
		store:    store,
		repos:    repos,
		cache:    cache,
		settings: settings,
		ballots:  NewBallotService(repos, settings, cache, log),
		results:  NewResultsService(repos, settings, cache, log),
		voters:   NewVoterService(repos, settings, cache, log),
	}

	f.president = domain.Position{Title: "President", IsActive: true}
	require.NoError(t, repos.Positions.Create(ctx, &f.president))
	f.secretary = domain.Position{Title: "Secretary", IsActive: true}
	require.NoError(t, repos.Positions.Create(ctx, &f.secretary))

	f.alice = domain.Candidate{Name: "Alice", RegNo: "C001", IsActive: true, PositionIDs: []int64{f.president.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &f.alice))
	f.bob = domain.Candidate{Name: "Bob", RegNo: "C002", IsActive: true, PositionIDs: []int64{f.president.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &f.bob))
	f.carol = domain.Candidate{Name: "Carol", RegNo: "C003", IsActive: true, PositionIDs: []int64{f.secretary.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &f.carol))

	return f
}

func (f *fixture) openWindow(t *testing.T) {
	t.Helper()
	start, end := windowStart, windowEnd
	_, err := f.settings.Update(context.Background(), SettingsUpdate{VotingStartTime: &start, VotingEndTime: &end})
	require.NoError(t, err)
}

func (f *fixture) addVoter(t *testing.T, name, regNo string) *domain.Voter {
	t.Helper()
	v := domain.NewVoter(name, regNo)
	require.NoError(t, f.repos.Voters.Create(context.Background(), v))
	return v
}

func (f *fixture) cast(t *testing.T, voterID int64, selections domain.Selections, now time.Time) *domain.BallotOutcome {
	t.Helper()
	out, err := f.ballots.ValidateAndCommit(context.Background(), domain.BallotRequest{
		VoterID:    voterID,
		Selections: selections,
		ClientIP:   "192.0.2.10",
		Now:        now,
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

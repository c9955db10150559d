package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockBallotStore struct {
	mock.Mock
}

func (m *mockBallotStore) CommitBallot(ctx context.Context, voterID int64, votes []domain.Vote, at time.Time) ([]int64, error) {
	args := m.Called(ctx, voterID, votes, at)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *mockBallotStore) ResetVoter(ctx context.Context, voterID int64) (int, error) {
	args := m.Called(ctx, voterID)
	return args.Int(0), args.Error(1)
}

func TestBallotService_OpensAtStart(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter One", "2021001")
	ballot := domain.Selections{f.president.ID: f.alice.ID}

	out := f.cast(t, v.ID, ballot, windowStart.Add(-time.Second))
	assert.False(t, out.Success)
	assert.Equal(t, domain.RejectVotingNotOpen, out.ErrorKind)
	assert.Equal(t, "not_started", out.State)
	assert.Equal(t, 0, f.store.VoteCount())

	out = f.cast(t, v.ID, ballot, windowStart.Add(time.Second))
	require.True(t, out.Success, out.Message)
	assert.Len(t, out.VoteIDs, 1)

	stored, err := f.repos.Voters.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasVoted)
	require.NotNil(t, stored.VotedAt)
	assert.Equal(t, windowStart.Add(time.Second), *stored.VotedAt)
}

func TestBallotService_WindowGating(t *testing.T) {
	tests := []struct {
		name      string
		configure bool
		now       time.Time
		wantOK    bool
		wantState string
	}{
		{name: "not configured", configure: false, now: duringVote, wantState: "not_configured"},
		{name: "before start", configure: true, now: windowStart.Add(-time.Nanosecond), wantState: "not_started"},
		{name: "exactly at start", configure: true, now: windowStart, wantOK: true},
		{name: "exactly at end", configure: true, now: windowEnd, wantOK: true},
		{name: "after end", configure: true, now: windowEnd.Add(time.Nanosecond), wantState: "ended"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.configure {
				f.openWindow(t)
			}
			v := f.addVoter(t, "Voter", "R1")

			out := f.cast(t, v.ID, domain.Selections{f.president.ID: f.alice.ID}, tt.now)
			assert.Equal(t, tt.wantOK, out.Success)
			if !tt.wantOK {
				assert.Equal(t, domain.RejectVotingNotOpen, out.ErrorKind)
				assert.Equal(t, tt.wantState, out.State)
				assert.Equal(t, 0, f.store.VoteCount())
			}
		})
	}
}

func TestBallotService_AlreadyVotedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	require.True(t, f.cast(t, v.ID, domain.Selections{f.president.ID: f.alice.ID}, duringVote).Success)
	before := f.store.VoteCount()

	for _, sel := range []domain.Selections{
		{f.president.ID: f.bob.ID},
		{f.secretary.ID: f.carol.ID},
		{},
	} {
		out := f.cast(t, v.ID, sel, duringVote)
		assert.Equal(t, domain.RejectAlreadyVoted, out.ErrorKind)
		assert.Equal(t, "You have already voted", out.Message)
	}

	// Already voted is checked before the window.
	out := f.cast(t, v.ID, domain.Selections{f.president.ID: f.bob.ID}, windowEnd.Add(time.Hour))
	assert.Equal(t, domain.RejectAlreadyVoted, out.ErrorKind)

	assert.Equal(t, before, f.store.VoteCount())
}

func TestBallotService_NoSelections(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	out := f.cast(t, v.ID, domain.Selections{}, duringVote)
	assert.Equal(t, domain.RejectNoSelections, out.ErrorKind)

	// The window is checked before emptiness.
	out = f.cast(t, v.ID, nil, windowStart.Add(-time.Minute))
	assert.Equal(t, domain.RejectVotingNotOpen, out.ErrorKind)
}

func TestBallotService_InvalidSelection(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	ctx := context.Background()

	inactive := domain.Position{Title: "Treasurer", IsActive: false}
	require.NoError(t, f.repos.Positions.Create(ctx, &inactive))
	retired := domain.Candidate{Name: "Dave", RegNo: "C004", IsActive: true, PositionIDs: []int64{f.secretary.ID}}
	require.NoError(t, f.repos.Candidates.Create(ctx, &retired))
	f.store.SetCandidateActive(retired.ID, false)

	tests := []struct {
		name         string
		selections   domain.Selections
		wantPosition int64
	}{
		{name: "candidate not linked to position", selections: domain.Selections{f.secretary.ID: f.bob.ID}, wantPosition: f.secretary.ID},
		{name: "unknown position", selections: domain.Selections{999: f.alice.ID}, wantPosition: 999},
		{name: "inactive position", selections: domain.Selections{inactive.ID: f.alice.ID}, wantPosition: inactive.ID},
		{name: "unknown candidate", selections: domain.Selections{f.president.ID: 999}, wantPosition: f.president.ID},
		{name: "inactive candidate", selections: domain.Selections{f.secretary.ID: retired.ID}, wantPosition: f.secretary.ID},
		{
			name:         "one bad position rejects the whole ballot",
			selections:   domain.Selections{f.president.ID: f.alice.ID, f.secretary.ID: f.bob.ID},
			wantPosition: f.secretary.ID,
		},
		{
			name:         "lowest offending position is reported",
			selections:   domain.Selections{f.president.ID: f.carol.ID, f.secretary.ID: f.bob.ID},
			wantPosition: f.president.ID,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := f.addVoter(t, "Voter", "INV"+string(rune('A'+i)))

			out := f.cast(t, v.ID, tt.selections, duringVote)
			assert.False(t, out.Success)
			assert.Equal(t, domain.RejectInvalidSelection, out.ErrorKind)
			require.NotNil(t, out.Position)
			assert.Equal(t, tt.wantPosition, *out.Position)
			assert.Equal(t, 0, f.store.VoteCount())

			stored, err := f.repos.Voters.GetByID(ctx, v.ID)
			require.NoError(t, err)
			assert.False(t, stored.HasVoted)
		})
	}
}

func TestBallotService_UnlinkedCandidateNamesPosition(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	out := f.cast(t, v.ID, domain.Selections{f.secretary.ID: f.bob.ID}, duringVote)
	assert.Equal(t, domain.RejectInvalidSelection, out.ErrorKind)
	assert.Contains(t, out.Message, "Secretary")
}

func TestBallotService_DuplicateVoteForPosition(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	_, err := f.store.RecordVote(domain.Vote{VoterID: v.ID, PositionID: f.secretary.ID, CandidateID: f.carol.ID, VotedAt: duringVote})
	require.NoError(t, err)

	out := f.cast(t, v.ID, domain.Selections{f.president.ID: f.alice.ID, f.secretary.ID: f.carol.ID}, duringVote)
	assert.Equal(t, domain.RejectDuplicateVoteForPosition, out.ErrorKind)
	require.NotNil(t, out.Position)
	assert.Equal(t, f.secretary.ID, *out.Position)
	assert.Equal(t, "You have already voted for Secretary", out.Message)
	assert.Equal(t, 1, f.store.VoteCount())
}

func TestBallotService_UnknownVoter(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)

	out := f.cast(t, 12345, domain.Selections{f.president.ID: f.alice.ID}, duringVote)
	assert.Equal(t, domain.RejectNotFound, out.ErrorKind)
	assert.Equal(t, "Voter not found", out.Message)
}

func TestBallotService_SubsetBallotConsumesVoter(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	require.True(t, f.cast(t, v.ID, domain.Selections{f.president.ID: f.alice.ID}, duringVote).Success)

	out := f.cast(t, v.ID, domain.Selections{f.secretary.ID: f.carol.ID}, duringVote)
	assert.Equal(t, domain.RejectAlreadyVoted, out.ErrorKind)
	assert.Equal(t, 1, f.store.VoteCount())
}

func TestBallotService_ConcurrentSubmissions(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	const attempts = 16
	outcomes := make([]*domain.BallotOutcome, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			out, err := f.ballots.ValidateAndCommit(context.Background(), domain.BallotRequest{
				VoterID:    v.ID,
				Selections: domain.Selections{f.president.ID: f.alice.ID, f.secretary.ID: f.carol.ID},
				Now:        duringVote,
			})
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, out := range outcomes {
		require.NotNil(t, out)
		if out.Success {
			successes++
			continue
		}
		assert.Contains(t,
			[]domain.RejectionKind{domain.RejectAlreadyVoted, domain.RejectConcurrentConflict, domain.RejectDuplicateVoteForPosition},
			out.ErrorKind)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, f.store.VoteCount())
}

func TestBallotService_CommitConflictsMapToConcurrentConflict(t *testing.T) {
	for _, storeErr := range []error{repository.ErrVoterConsumed, repository.ErrDuplicateVote} {
		t.Run(storeErr.Error(), func(t *testing.T) {
			f := newFixture(t)
			f.openWindow(t)
			v := f.addVoter(t, "Voter", "R1")

			ballots := &mockBallotStore{}
			ballots.On("CommitBallot", mock.Anything, v.ID, mock.Anything, duringVote).Return(nil, storeErr)
			f.repos.Ballots = ballots

			out := f.cast(t, v.ID, domain.Selections{f.president.ID: f.alice.ID}, duringVote)
			assert.Equal(t, domain.RejectConcurrentConflict, out.ErrorKind)
			ballots.AssertExpectations(t)
		})
	}
}

func TestBallotService_IntegrityViolationIsFatal(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	ballots := &mockBallotStore{}
	ballots.On("CommitBallot", mock.Anything, v.ID, mock.Anything, duringVote).
		Return(nil, fmt.Errorf("%w: votes_position_id_fkey", repository.ErrIntegrity))
	f.repos.Ballots = ballots

	out, err := f.ballots.ValidateAndCommit(context.Background(), domain.BallotRequest{
		VoterID:    v.ID,
		Selections: domain.Selections{f.president.ID: f.alice.ID},
		Now:        duringVote,
	})
	assert.ErrorIs(t, err, repository.ErrIntegrity)
	assert.Nil(t, out)
}

func TestBallotService_CommitPassesVotesInPositionOrder(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	ballots := &mockBallotStore{}
	ballots.On("CommitBallot", mock.Anything, v.ID, mock.MatchedBy(func(votes []domain.Vote) bool {
		return len(votes) == 2 &&
			votes[0].PositionID == f.president.ID && votes[0].CandidateID == f.alice.ID &&
			votes[1].PositionID == f.secretary.ID && votes[1].CandidateID == f.carol.ID &&
			votes[0].IPAddress == "192.0.2.10"
	}), duringVote).Return([]int64{7, 8}, nil)
	f.repos.Ballots = ballots

	out := f.cast(t, v.ID, domain.Selections{f.secretary.ID: f.carol.ID, f.president.ID: f.alice.ID}, duringVote)
	require.True(t, out.Success)
	assert.Equal(t, []int64{7, 8}, out.VoteIDs)
	ballots.AssertExpectations(t)
}

func TestBallotService_CommitInvalidatesResultsCache(t *testing.T) {
	mr, cache := setupCache(t)
	f := newFixtureWithCache(t, cache)
	f.openWindow(t)
	v := f.addVoter(t, "Voter", "R1")

	_, err := f.results.GetResults(context.Background(), nil, duringVote)
	require.NoError(t, err)
	require.True(t, mr.Exists("staging:election:results:all"))

	require.True(t, f.cast(t, v.ID, domain.Selections{f.president.ID: f.alice.ID}, duringVote).Success)
	assert.False(t, mr.Exists("staging:election:results:all"))

	snap, err := f.results.GetResults(context.Background(), nil, duringVote)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Positions[0].TotalVotes)
}

func TestBallotService_RejectionsLogAtWarn(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		kind domain.RejectionKind
	}{
		{name: "before window", now: windowStart.Add(-time.Minute), kind: domain.RejectVotingNotOpen},
		{name: "after window", now: windowEnd.Add(time.Minute), kind: domain.RejectVotingNotOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.openWindow(t)
			v := f.addVoter(t, "Voter", "2021009")

			core, logs := observer.New(zapcore.DebugLevel)
			svc := NewBallotService(f.repos, f.settings, f.cache, &logger.Logger{Logger: zap.New(core)})

			out, err := svc.ValidateAndCommit(context.Background(), domain.BallotRequest{
				VoterID:    v.ID,
				Selections: domain.Selections{f.president.ID: f.alice.ID},
				Now:        tt.now,
			})
			require.NoError(t, err)
			require.False(t, out.Success)
			assert.Equal(t, tt.kind, out.ErrorKind)

			entries := logs.FilterMessage("Ballot rejected").All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
			assert.Equal(t, string(tt.kind), entries[0].ContextMap()["reason"])
		})
	}
}

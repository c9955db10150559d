package repository_test

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/database"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB is nil when Docker is unavailable or -short is set.
var testDB *database.PostgresDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("docker unavailable, skipping postgres tests: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=election",
			"POSTGRES_PASSWORD=election",
			"POSTGRES_DB=election",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start postgres: %v", err)
	}
	_ = resource.Expire(120)

	url := fmt.Sprintf("postgres://election:election@%s/election?sslmode=disable", resource.GetHostPort("5432/tcp"))
	pool.MaxWait = 60 * time.Second
	if err := pool.Retry(func() error {
		db, err := database.NewPostgresDB(context.Background(), url)
		if err != nil {
			return err
		}
		testDB = db
		return nil
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("could not connect to postgres: %v", err)
	}

	code := m.Run()

	testDB.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

// freshRepos recreates the schema and returns repositories over it.
func freshRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
	ctx := context.Background()
	for _, stmt := range append(append([]string{}, repository.DropStatements...), repository.SchemaStatements...) {
		_, err := testDB.Pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return repository.NewPostgresRepositories(testDB)
}

type election struct {
	president, secretary domain.Position
	alice, bob, carol    domain.Candidate
	ann                  *domain.Voter
}

func seed(t *testing.T, repos *repository.Repositories) election {
	t.Helper()
	ctx := context.Background()
	var e election

	e.president = domain.Position{Title: "President", IsActive: true}
	require.NoError(t, repos.Positions.Create(ctx, &e.president))
	e.secretary = domain.Position{Title: "Secretary", IsActive: true}
	require.NoError(t, repos.Positions.Create(ctx, &e.secretary))

	e.alice = domain.Candidate{Name: "Alice", RegNo: "C001", IsActive: true, PositionIDs: []int64{e.president.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &e.alice))
	e.bob = domain.Candidate{Name: "Bob", RegNo: "C002", IsActive: true, PositionIDs: []int64{e.president.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &e.bob))
	e.carol = domain.Candidate{Name: "Carol", RegNo: "C003", IsActive: true, PositionIDs: []int64{e.secretary.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &e.carol))

	e.ann = domain.NewVoter("Ann", "S001")
	require.NoError(t, repos.Voters.Create(ctx, e.ann))
	return e
}

func TestPostgres_VoterLookups(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()
	e := seed(t, repos)

	byToken, err := repos.Voters.GetByToken(ctx, e.ann.Token)
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, e.ann.ID, byToken.ID)

	missing, err := repos.Voters.GetByRegNo(ctx, "S999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := domain.NewVoter("Ann Again", "S001")
	assert.ErrorIs(t, repos.Voters.Create(ctx, dup), repository.ErrDuplicateKey)

	position, err := repos.Positions.GetByTitle(ctx, "president")
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, e.president.ID, position.ID)
}

func TestPostgres_CommitBallot(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()
	e := seed(t, repos)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ids, err := repos.Ballots.CommitBallot(ctx, e.ann.ID, []domain.Vote{
		{PositionID: e.president.ID, CandidateID: e.alice.ID, IPAddress: "10.0.0.7"},
		{PositionID: e.secretary.ID, CandidateID: e.carol.ID},
	}, at)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ann, err := repos.Voters.GetByID(ctx, e.ann.ID)
	require.NoError(t, err)
	assert.True(t, ann.HasVoted)
	require.NotNil(t, ann.VotedAt)
	assert.True(t, at.Equal(*ann.VotedAt))

	counts, err := repos.Votes.CountByPosition(ctx, e.president.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{e.alice.ID: 1}, counts)

	_, err = repos.Ballots.CommitBallot(ctx, e.ann.ID, []domain.Vote{
		{PositionID: e.president.ID, CandidateID: e.bob.ID},
	}, at)
	assert.ErrorIs(t, err, repository.ErrVoterConsumed)

	audit, err := repos.Votes.ListAudit(ctx, domain.AuditFilter{Voter: "s00"})
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, "Ann", audit[0].VoterName)

	removed, err := repos.Ballots.ResetVoter(ctx, e.ann.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	ann, err = repos.Voters.GetByID(ctx, e.ann.ID)
	require.NoError(t, err)
	assert.False(t, ann.HasVoted)
	assert.Nil(t, ann.VotedAt)
}

func TestPostgres_CandidateNotLinkedIsIntegrityError(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()
	e := seed(t, repos)

	_, err := repos.Ballots.CommitBallot(ctx, e.ann.ID, []domain.Vote{
		{PositionID: e.secretary.ID, CandidateID: e.alice.ID},
	}, time.Now())
	assert.ErrorIs(t, err, repository.ErrIntegrity)

	ann, err := repos.Voters.GetByID(ctx, e.ann.ID)
	require.NoError(t, err)
	assert.False(t, ann.HasVoted, "failed commit leaves the voter untouched")
}

func TestPostgres_ConcurrentCommitsConsumeOnce(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()
	e := seed(t, repos)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Ballots.CommitBallot(ctx, e.ann.ID, []domain.Vote{
				{PositionID: e.president.ID, CandidateID: e.bob.ID},
			}, time.Now())
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	counts, err := repos.Votes.CountByPosition(ctx, e.president.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[e.bob.ID])
}

func TestPostgres_SettingsSingleRow(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()

	defaults := domain.DefaultSettings("hash", "CODE")

	s, err := repos.Settings.GetOrCreate(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultElectionTitle, s.ElectionTitle)

	s.ElectionTitle = "Student Council"
	require.NoError(t, repos.Settings.Save(ctx, s))

	again, err := repos.Settings.GetOrCreate(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, "Student Council", again.ElectionTitle)

	var rows int
	require.NoError(t, testDB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM election_settings`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestPostgres_CandidateRegNoMayRepeat(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()
	e := seed(t, repos)

	twin := domain.Candidate{Name: "Alice Two", RegNo: e.alice.RegNo, IsActive: true, PositionIDs: []int64{e.secretary.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &twin))
	assert.NotEqual(t, e.alice.ID, twin.ID)

	oldest, err := repos.Candidates.GetByRegNo(ctx, e.alice.RegNo)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, e.alice.ID, oldest.ID)
}

func TestPostgres_SetActive(t *testing.T) {
	repos := freshRepos(t)
	ctx := context.Background()
	e := seed(t, repos)

	require.NoError(t, repos.Positions.SetActive(ctx, e.secretary.ID, false))
	positions, err := repos.Positions.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, e.president.ID, positions[0].ID)

	require.NoError(t, repos.Candidates.SetActive(ctx, e.bob.ID, false))
	active, err := repos.Candidates.ListActiveForPosition(ctx, e.president.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, e.alice.ID, active[0].ID)

	assert.ErrorIs(t, repos.Positions.SetActive(ctx, 9999, true), repository.ErrNotFound)
	assert.ErrorIs(t, repos.Candidates.SetActive(ctx, 9999, true), repository.ErrNotFound)

	dup := domain.Position{Title: "President"}
	assert.ErrorIs(t, repos.Positions.Create(ctx, &dup), repository.ErrDuplicateKey)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"class-election/internal/domain"
	"class-election/internal/middleware"
	"class-election/internal/repository"
	"class-election/internal/repository/memory"
	"class-election/internal/service"
	"class-election/internal/service/auth"
	"class-election/pkg/logger"

	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
)

type fakePhotoStore struct {
	mu         sync.Mutex
	configured bool
	files      map[string][]byte
}

func (f *fakePhotoStore) IsConfigured() bool { return f.configured }

func (f *fakePhotoStore) Upload(_ context.Context, path string, content []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
	return "https://raw.githubusercontent.com/school/photos/main/" + path, nil
}

func (f *fakePhotoStore) Delete(_ context.Context, path string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

// testServer is a running election: President (Alice, Bob), Secretary
// (Carol) and two voters, with the clock set inside the voting window.
type testServer struct {
	t        *testing.T
	router   http.Handler
	store    *memory.Store
	repos    *repository.Repositories
	services *service.Services
	sessions *auth.Service
	photos   *fakePhotoStore
	clock    time.Time

	president domain.Position
	secretary domain.Position
	alice     domain.Candidate
	bob       domain.Candidate
	carol     domain.Candidate
	ann       *domain.Voter
	ben       *domain.Voter
}

type serverOption func(*RouterDeps)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	store := memory.NewStore()
	repos := store.Repositories()
	cache := service.NewCacheService(nil, 0, nil)
	settings := service.NewSettingsService(repos.Settings, "audit2025", "AUDIT-CODE", log)
	photos := &fakePhotoStore{configured: true, files: map[string][]byte{}}

	s := &testServer{
		t:      t,
		store:  store,
		repos:  repos,
		photos: photos,
		clock:  windowStart.Add(time.Hour),
		services: &service.Services{
			Ballots:    service.NewBallotService(repos, settings, cache, log),
			Results:    service.NewResultsService(repos, settings, cache, log),
			Voters:     service.NewVoterService(repos, settings, cache, log),
			Candidates: service.NewCandidateService(repos, photos, cache, log),
			Positions:  service.NewPositionService(repos, cache, log),
			Settings:   settings,
			Audit:      service.NewAuditService(repos.Votes, log),
		},
		sessions: auth.NewService("test-secret", 2*time.Hour, 2*time.Hour, log),
	}

	s.president = domain.Position{Title: "President", IsActive: true}
	require.NoError(t, repos.Positions.Create(ctx, &s.president))
	s.secretary = domain.Position{Title: "Secretary", IsActive: true}
	require.NoError(t, repos.Positions.Create(ctx, &s.secretary))

	s.alice = domain.Candidate{Name: "Alice", RegNo: "C001", IsActive: true, PositionIDs: []int64{s.president.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &s.alice))
	s.bob = domain.Candidate{Name: "Bob", RegNo: "C002", IsActive: true, PositionIDs: []int64{s.president.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &s.bob))
	s.carol = domain.Candidate{Name: "Carol", RegNo: "C003", IsActive: true, PositionIDs: []int64{s.secretary.ID}}
	require.NoError(t, repos.Candidates.Create(ctx, &s.carol))

	s.ann = domain.NewVoter("Ann", "S001")
	require.NoError(t, repos.Voters.Create(ctx, s.ann))
	s.ben = domain.NewVoter("Ben", "S002")
	require.NoError(t, repos.Voters.Create(ctx, s.ben))

	start, end := windowStart, windowEnd
	_, err := settings.Update(ctx, service.SettingsUpdate{VotingStartTime: &start, VotingEndTime: &end})
	require.NoError(t, err)

	deps := RouterDeps{
		Services:     s.services,
		Sessions:     s.sessions,
		LoginLimiter: middleware.NewIPRateLimiter(1000, 1000),
		Logger:       log,
		Now:          func() time.Time { return s.clock },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	s.router = NewRouter(deps)
	return s
}

func (s *testServer) do(method, path string, body io.Reader, token string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(method, path, jsonReader(s.t, payload), token)
}

func (s *testServer) voterToken(v *domain.Voter) string {
	s.t.Helper()
	token, _, err := s.sessions.IssueVoterToken(v)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) auditorToken() string {
	s.t.Helper()
	token, _, err := s.sessions.IssueAuditorToken()
	require.NoError(s.t, err)
	return token
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func nopLogger() *logger.Logger { return logger.NewNop() }

func jsonReader(t *testing.T, payload interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func selectionsBody(pairs ...int64) map[string]interface{} {
	selections := make([]map[string]int64, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		selections = append(selections, map[string]int64{"position_id": pairs[i], "candidate_id": pairs[i+1]})
	}
	return map[string]interface{}{"selections": selections}
}

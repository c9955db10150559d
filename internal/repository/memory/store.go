// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness and linkage rules as the
// Postgres schema and is used by tests and by development runs without a
// database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"

	"github.com/google/uuid"
)

type pair [2]int64

type Store struct {
	mu sync.RWMutex

	voters     map[int64]domain.Voter
	positions  map[int64]domain.Position
	candidates map[int64]domain.Candidate
	links      map[pair]bool // candidate, position
	votes      []domain.Vote
	voted      map[pair]bool // voter, position
	settings   *domain.ElectionSettings

	nextID int64
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		voters:     make(map[int64]domain.Voter),
		positions:  make(map[int64]domain.Position),
		candidates: make(map[int64]domain.Candidate),
		links:      make(map[pair]bool),
		voted:      make(map[pair]bool),
		now:        time.Now,
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Voters:     &voterRepo{s},
		Positions:  &positionRepo{s},
		Candidates: &candidateRepo{s},
		Votes:      &voteRepo{s},
		Ballots:    &ballotStore{s},
		Settings:   &settingsRepo{s},
	}
}

// RecordVote inserts a vote row without touching the voter, like a raw
// INSERT would. The (voter, position) guard still applies.
func (s *Store) RecordVote(v domain.Vote) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVoteLocked(v); err != nil {
		return 0, err
	}
	return s.insertVoteLocked(v), nil
}

// VoteCount returns the number of stored vote rows.
func (s *Store) VoteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votes)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) checkVoteLocked(v domain.Vote) error {
	if _, ok := s.voters[v.VoterID]; !ok {
		return fmt.Errorf("%w: voter %d does not exist", repository.ErrIntegrity, v.VoterID)
	}
	if !s.links[pair{v.CandidateID, v.PositionID}] {
		return fmt.Errorf("%w: %s", repository.ErrIntegrity, repository.ConstraintVoteCandidateLink)
	}
	if s.voted[pair{v.VoterID, v.PositionID}] {
		return fmt.Errorf("%w: voter %d position %d", repository.ErrDuplicateVote, v.VoterID, v.PositionID)
	}
	return nil
}

func (s *Store) insertVoteLocked(v domain.Vote) int64 {
	v.ID = s.id()
	s.votes = append(s.votes, v)
	s.voted[pair{v.VoterID, v.PositionID}] = true
	return v.ID
}

func (s *Store) candidateLocked(c domain.Candidate) domain.Candidate {
	c.PositionIDs = nil
	for link := range s.links {
		if link[0] == c.ID {
			c.PositionIDs = append(c.PositionIDs, link[1])
		}
	}
	sort.Slice(c.PositionIDs, func(i, j int) bool { return c.PositionIDs[i] < c.PositionIDs[j] })
	return c
}

type voterRepo struct{ s *Store }

func (r *voterRepo) find(match func(domain.Voter) bool) *domain.Voter {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.voters {
		if match(v) {
			cp := v
			return &cp
		}
	}
	return nil
}

func (r *voterRepo) GetByID(_ context.Context, id int64) (*domain.Voter, error) {
	return r.find(func(v domain.Voter) bool { return v.ID == id }), nil
}

func (r *voterRepo) GetByToken(_ context.Context, token uuid.UUID) (*domain.Voter, error) {
	return r.find(func(v domain.Voter) bool { return v.Token == token }), nil
}

func (r *voterRepo) GetByRegNo(_ context.Context, regNo string) (*domain.Voter, error) {
	return r.find(func(v domain.Voter) bool { return v.RegNo == regNo }), nil
}

func (r *voterRepo) Create(_ context.Context, voter *domain.Voter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if voter.Token == uuid.Nil {
		voter.Token = uuid.New()
	}
	for _, v := range r.s.voters {
		if v.RegNo == voter.RegNo {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, repository.ConstraintVoterRegNo)
		}
		if v.Token == voter.Token {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, repository.ConstraintVoterToken)
		}
	}
	voter.ID = r.s.id()
	voter.HasVoted = false
	voter.VotedAt = nil
	voter.CreatedAt = r.s.now()
	voter.UpdatedAt = voter.CreatedAt
	r.s.voters[voter.ID] = *voter
	return nil
}

func (r *voterRepo) UpdateName(_ context.Context, id int64, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.voters[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Name = name
	v.UpdatedAt = r.s.now()
	r.s.voters[id] = v
	return nil
}

func (r *voterRepo) List(_ context.Context) ([]domain.Voter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Voter, 0, len(r.s.voters))
	for _, v := range r.s.voters {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *voterRepo) Turnout(_ context.Context) (domain.Turnout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t := domain.Turnout{TotalVoters: len(r.s.voters)}
	for _, v := range r.s.voters {
		if v.HasVoted {
			t.TotalVoted++
		}
	}
	return t, nil
}

type positionRepo struct{ s *Store }

func (r *positionRepo) GetByID(_ context.Context, id int64) (*domain.Position, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.positions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *positionRepo) GetByTitle(_ context.Context, title string) (*domain.Position, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *domain.Position
	for _, p := range r.s.positions {
		if strings.EqualFold(p.Title, title) && (found == nil || p.ID < found.ID) {
			cp := p
			found = &cp
		}
	}
	return found, nil
}

func (r *positionRepo) ListActive(_ context.Context) ([]domain.Position, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Position
	for _, p := range r.s.positions {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *positionRepo) Create(_ context.Context, position *domain.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.positions {
		if p.Title == position.Title {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, repository.ConstraintPositionTitle)
		}
	}
	position.ID = r.s.id()
	position.CreatedAt = r.s.now()
	position.UpdatedAt = position.CreatedAt
	r.s.positions[position.ID] = *position
	return nil
}

func (r *positionRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.positions[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = active
	p.UpdatedAt = r.s.now()
	r.s.positions[id] = p
	return nil
}

// SetPositionActive toggles a position's eligibility; unknown ids are ignored.
func (s *Store) SetPositionActive(id int64, active bool) {
	_ = (&positionRepo{s: s}).SetActive(context.Background(), id, active)
}

type candidateRepo struct{ s *Store }

func (r *candidateRepo) GetByID(_ context.Context, id int64) (*domain.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.candidates[id]
	if !ok {
		return nil, nil
	}
	c = r.s.candidateLocked(c)
	return &c, nil
}

func (r *candidateRepo) GetByRegNo(_ context.Context, regNo string) (*domain.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *domain.Candidate
	for _, c := range r.s.candidates {
		if c.RegNo == regNo && (found == nil || c.ID < found.ID) {
			cp := r.s.candidateLocked(c)
			found = &cp
		}
	}
	return found, nil
}

func (r *candidateRepo) ListActiveForPosition(_ context.Context, positionID int64) ([]domain.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Candidate
	for _, c := range r.s.candidates {
		if c.IsActive && r.s.links[pair{c.ID, positionID}] {
			out = append(out, r.s.candidateLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *candidateRepo) ListByIDs(_ context.Context, ids []int64) ([]domain.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Candidate
	for _, id := range ids {
		if c, ok := r.s.candidates[id]; ok {
			out = append(out, r.s.candidateLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *candidateRepo) Create(_ context.Context, candidate *domain.Candidate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pid := range candidate.PositionIDs {
		if _, ok := r.s.positions[pid]; !ok {
			return fmt.Errorf("%w: position %d does not exist", repository.ErrIntegrity, pid)
		}
	}
	candidate.ID = r.s.id()
	candidate.CreatedAt = r.s.now()
	candidate.UpdatedAt = candidate.CreatedAt
	stored := *candidate
	stored.PositionIDs = nil
	r.s.candidates[candidate.ID] = stored
	for _, pid := range candidate.PositionIDs {
		r.s.links[pair{candidate.ID, pid}] = true
	}
	return nil
}

func (r *candidateRepo) Update(_ context.Context, candidate *domain.Candidate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.candidates[candidate.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Name = candidate.Name
	c.Bio = candidate.Bio
	c.IsActive = candidate.IsActive
	c.UpdatedAt = r.s.now()
	candidate.UpdatedAt = c.UpdatedAt
	r.s.candidates[c.ID] = c
	return nil
}

func (r *candidateRepo) LinkPosition(_ context.Context, candidateID, positionID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.candidates[candidateID]; !ok {
		return fmt.Errorf("%w: candidate %d does not exist", repository.ErrIntegrity, candidateID)
	}
	if _, ok := r.s.positions[positionID]; !ok {
		return fmt.Errorf("%w: position %d does not exist", repository.ErrIntegrity, positionID)
	}
	r.s.links[pair{candidateID, positionID}] = true
	return nil
}

func (r *candidateRepo) SetPhotoURL(_ context.Context, candidateID int64, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.candidates[candidateID]
	if !ok {
		return repository.ErrNotFound
	}
	c.PhotoURL = url
	c.UpdatedAt = r.s.now()
	r.s.candidates[candidateID] = c
	return nil
}

func (r *candidateRepo) SetActive(_ context.Context, candidateID int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.candidates[candidateID]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = active
	c.UpdatedAt = r.s.now()
	r.s.candidates[candidateID] = c
	return nil
}

// SetCandidateActive toggles a candidate's eligibility; unknown ids are ignored.
func (s *Store) SetCandidateActive(id int64, active bool) {
	_ = (&candidateRepo{s: s}).SetActive(context.Background(), id, active)
}

type voteRepo struct{ s *Store }

func (r *voteRepo) ExistsForVoterPosition(_ context.Context, voterID, positionID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.voted[pair{voterID, positionID}], nil
}

func (r *voteRepo) CountByPosition(_ context.Context, positionID int64) (map[int64]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[int64]int)
	for _, v := range r.s.votes {
		if v.PositionID == positionID {
			counts[v.CandidateID]++
		}
	}
	return counts, nil
}

func (r *voteRepo) ListAudit(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(filter.Voter))
	var out []domain.AuditEntry
	for _, v := range r.s.votes {
		if filter.PositionID != nil && v.PositionID != *filter.PositionID {
			continue
		}
		voter := r.s.voters[v.VoterID]
		if needle != "" &&
			!strings.Contains(strings.ToLower(voter.Name), needle) &&
			!strings.Contains(strings.ToLower(voter.RegNo), needle) {
			continue
		}
		out = append(out, domain.AuditEntry{
			Vote:          v,
			VoterName:     voter.Name,
			VoterRegNo:    voter.RegNo,
			PositionTitle: r.s.positions[v.PositionID].Title,
			CandidateName: r.s.candidates[v.CandidateID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].VotedAt.Equal(out[j].VotedAt) {
			return out[i].VotedAt.After(out[j].VotedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type ballotStore struct{ s *Store }

func (b *ballotStore) CommitBallot(_ context.Context, voterID int64, votes []domain.Vote, at time.Time) ([]int64, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	voter, ok := b.s.voters[voterID]
	if !ok {
		return nil, fmt.Errorf("%w: voter %d does not exist", repository.ErrIntegrity, voterID)
	}
	if voter.HasVoted {
		return nil, repository.ErrVoterConsumed
	}

	// Check everything first so a failure leaves nothing behind.
	seen := make(map[int64]bool, len(votes))
	for _, v := range votes {
		v.VoterID = voterID
		if err := b.s.checkVoteLocked(v); err != nil {
			return nil, err
		}
		if seen[v.PositionID] {
			return nil, fmt.Errorf("%w: voter %d position %d", repository.ErrDuplicateVote, voterID, v.PositionID)
		}
		seen[v.PositionID] = true
	}

	ids := make([]int64, 0, len(votes))
	for _, v := range votes {
		v.VoterID = voterID
		v.VotedAt = at
		ids = append(ids, b.s.insertVoteLocked(v))
	}

	voter.HasVoted = true
	voter.VotedAt = &at
	voter.UpdatedAt = at
	b.s.voters[voterID] = voter
	return ids, nil
}

func (b *ballotStore) ResetVoter(_ context.Context, voterID int64) (int, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	voter, ok := b.s.voters[voterID]
	if !ok {
		return 0, repository.ErrNotFound
	}

	kept := b.s.votes[:0]
	removed := 0
	for _, v := range b.s.votes {
		if v.VoterID == voterID {
			delete(b.s.voted, pair{v.VoterID, v.PositionID})
			removed++
			continue
		}
		kept = append(kept, v)
	}
	b.s.votes = kept

	voter.HasVoted = false
	voter.VotedAt = nil
	voter.UpdatedAt = b.s.now()
	b.s.voters[voterID] = voter
	return removed, nil
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) GetOrCreate(_ context.Context, defaults *domain.ElectionSettings) (*domain.ElectionSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		cp := *defaults
		cp.ID = domain.SettingsID
		cp.CreatedAt = r.s.now()
		cp.UpdatedAt = cp.CreatedAt
		r.s.settings = &cp
	}
	out := *r.s.settings
	return &out, nil
}

func (r *settingsRepo) Save(_ context.Context, settings *domain.ElectionSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if settings.VotingStartTime != nil && settings.VotingEndTime != nil &&
		!settings.VotingEndTime.After(*settings.VotingStartTime) {
		return fmt.Errorf("%w: election_settings_window_check", repository.ErrIntegrity)
	}
	cp := *settings
	cp.ID = domain.SettingsID
	if r.s.settings != nil {
		cp.CreatedAt = r.s.settings.CreatedAt
	} else {
		cp.CreatedAt = r.s.now()
	}
	cp.UpdatedAt = r.s.now()
	r.s.settings = &cp
	settings.ID = domain.SettingsID
	return nil
}

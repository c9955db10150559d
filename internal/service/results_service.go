package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/errors"
	"class-election/pkg/logger"
)

// ResultsService derives status, ballots and tallies from the store. It
// never writes. Only the tallies are cached; status and conclusion are
// recomputed from now on every call.
type ResultsService struct {
	repos    *repository.Repositories
	settings *SettingsService
	cache    *CacheService
	logger   *logger.Logger
}

// NewResultsService creates a new results service
func NewResultsService(repos *repository.Repositories, settings *SettingsService, cache *CacheService, log *logger.Logger) *ResultsService {
	return &ResultsService{
		repos:    repos,
		settings: settings,
		cache:    cache,
		logger:   log,
	}
}

// Status returns the voting status at now.
func (s *ResultsService) Status(ctx context.Context, now time.Time) (domain.VotingStatus, error) {
	status, _, err := s.settings.Status(ctx, now)
	return status, err
}

func (s *ResultsService) Overview(ctx context.Context, now time.Time) (*domain.StatusOverview, error) {
	status, settings, err := s.settings.Status(ctx, now)
	if err != nil {
		return nil, err
	}
	turnout, err := s.turnout(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := s.repos.Positions.ListActive(ctx)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load positions", err)
	}
	if positions == nil {
		positions = []domain.Position{}
	}

	return &domain.StatusOverview{
		ElectionTitle:       settings.ElectionTitle,
		ElectionDescription: settings.ElectionDescription,
		Status:              status,
		StatusLabel:         status.Label(),
		IsVotingOpen:        status == domain.StatusActive,
		VotingStartTime:     settings.VotingStartTime,
		VotingEndTime:       settings.VotingEndTime,
		TotalVoters:         turnout.TotalVoters,
		TotalVoted:          turnout.TotalVoted,
		TurnoutPercentage:   turnout.Percentage(),
		ActivePositions:     positions,
		ShowLiveResults:     settings.ShowLiveResults,
		CurrentTime:         now,
	}, nil
}

// Ballot lists active positions with their active candidates. Positions
// without any active candidate are left out.
func (s *ResultsService) Ballot(ctx context.Context) ([]domain.BallotPosition, error) {
	positions, err := s.repos.Positions.ListActive(ctx)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load positions", err)
	}

	ballot := make([]domain.BallotPosition, 0, len(positions))
	for _, p := range positions {
		candidates, err := s.repos.Candidates.ListActiveForPosition(ctx, p.ID)
		if err != nil {
			return nil, errors.NewInternalError("Failed to load candidates", err)
		}
		if len(candidates) == 0 {
			continue
		}
		ballot = append(ballot, domain.BallotPosition{Position: p, Candidates: candidates})
	}
	return ballot, nil
}

// GetResults returns an ungated tally snapshot. With positionID set only
// that position is tallied; an unknown or inactive position is NotFound.
func (s *ResultsService) GetResults(ctx context.Context, positionID *int64, now time.Time) (*domain.ResultsSnapshot, error) {
	status, settings, err := s.settings.Status(ctx, now)
	if err != nil {
		return nil, err
	}
	turnout, err := s.turnout(ctx)
	if err != nil {
		return nil, err
	}

	tallies, err := s.cache.TalliesWithCache(ctx, positionID, func(ctx context.Context) ([]domain.PositionTally, error) {
		return s.computeTallies(ctx, positionID)
	})
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return nil, appErr
		}
		s.logger.WithError(err).Error("Failed to compute tallies")
		return nil, errors.NewInternalError("Failed to compute results", err)
	}

	return &domain.ResultsSnapshot{
		Conclusion:      domain.Conclude(status, turnout),
		Positions:       tallies,
		TotalVoters:     turnout.TotalVoters,
		TotalVoted:      turnout.TotalVoted,
		PendingVoters:   turnout.Pending(),
		RefreshInterval: int(settings.RefreshInterval() / time.Second),
		Timestamp:       now,
	}, nil
}

// LiveResults is GetResults gated on the show_live_results setting.
func (s *ResultsService) LiveResults(ctx context.Context, positionID *int64, now time.Time) (*domain.ResultsSnapshot, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.ShowLiveResults {
		return nil, errors.NewAuthorizationError("Live results are disabled")
	}
	return s.GetResults(ctx, positionID, now)
}

// FinalResults reports winners once the election has concluded. Before
// that only the turnout facts are returned with CanShowResults false.
func (s *ResultsService) FinalResults(ctx context.Context, now time.Time) (*domain.FinalResults, error) {
	status, settings, err := s.settings.Status(ctx, now)
	if err != nil {
		return nil, err
	}
	turnout, err := s.turnout(ctx)
	if err != nil {
		return nil, err
	}
	conclusion := domain.Conclude(status, turnout)

	final := &domain.FinalResults{
		CanShowResults: conclusion.ElectionEnded,
		TotalVoters:    turnout.TotalVoters,
		TotalVoted:     turnout.TotalVoted,
		VotingEnded:    conclusion.VotingEndedByTime,
		AllVotersVoted: conclusion.AllVotersVoted,
		VotingEndTime:  settings.VotingEndTime,
	}
	if !conclusion.ElectionEnded {
		return final, nil
	}

	positions, err := s.repos.Positions.ListActive(ctx)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load positions", err)
	}
	for _, p := range positions {
		tally, err := s.finalTally(ctx, p)
		if err != nil {
			s.logger.WithError(err).WithField("position_id", p.ID).Error("Failed to tally position")
			return nil, errors.NewInternalError("Failed to compute results", err)
		}
		final.Positions = append(final.Positions, tally)
		if w := DetermineWinner(tally); w != nil {
			final.Winners = append(final.Winners, *w)
		}
	}
	return final, nil
}

// finalTally counts every candidate that received a vote for the
// position, regardless of its current active flag.
func (s *ResultsService) finalTally(ctx context.Context, position domain.Position) (domain.PositionTally, error) {
	counts, err := s.repos.Votes.CountByPosition(ctx, position.ID)
	if err != nil {
		return domain.PositionTally{}, err
	}
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	candidates, err := s.repos.Candidates.ListByIDs(ctx, ids)
	if err != nil {
		return domain.PositionTally{}, err
	}
	return BuildPositionTally(position, candidates, counts), nil
}

func (s *ResultsService) computeTallies(ctx context.Context, positionID *int64) ([]domain.PositionTally, error) {
	var positions []domain.Position
	if positionID != nil {
		p, err := s.repos.Positions.GetByID(ctx, *positionID)
		if err != nil {
			return nil, err
		}
		if p == nil || !p.IsActive {
			return nil, errors.NewNotFoundError(fmt.Sprintf("Position %d not found", *positionID))
		}
		positions = []domain.Position{*p}
	} else {
		var err error
		if positions, err = s.repos.Positions.ListActive(ctx); err != nil {
			return nil, err
		}
	}

	tallies := make([]domain.PositionTally, 0, len(positions))
	for _, p := range positions {
		candidates, err := s.repos.Candidates.ListActiveForPosition(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		counts, err := s.repos.Votes.CountByPosition(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		tallies = append(tallies, BuildPositionTally(p, candidates, counts))
	}
	return tallies, nil
}

func (s *ResultsService) turnout(ctx context.Context) (domain.Turnout, error) {
	turnout, err := s.repos.Voters.Turnout(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count turnout")
		return domain.Turnout{}, errors.NewInternalError("Failed to count turnout", err)
	}
	return turnout, nil
}

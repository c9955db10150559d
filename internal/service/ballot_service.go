package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/logger"
)

// BallotService validates a ballot against the current election state and
// commits it as one atomic unit.
type BallotService struct {
	repos    *repository.Repositories
	settings *SettingsService
	cache    *CacheService
	logger   *logger.Logger
}

// NewBallotService creates a new ballot service
func NewBallotService(repos *repository.Repositories, settings *SettingsService, cache *CacheService, log *logger.Logger) *BallotService {
	return &BallotService{
		repos:    repos,
		settings: settings,
		cache:    cache,
		logger:   log,
	}
}

// Validate applies the ballot rules in order and stops at the first
// failure. A nil rejection means the ballot may be committed.
func (s *BallotService) Validate(ctx context.Context, voter *domain.Voter, selections domain.Selections, settings *domain.ElectionSettings, now time.Time) (*domain.Rejection, error) {
	if voter.HasVoted {
		return &domain.Rejection{Kind: domain.RejectAlreadyVoted}, nil
	}

	if state := settings.StatusAt(now); state != domain.StatusActive {
		return &domain.Rejection{Kind: domain.RejectVotingNotOpen, State: state}, nil
	}

	if len(selections) == 0 {
		return &domain.Rejection{Kind: domain.RejectNoSelections}, nil
	}

	positionIDs := selections.PositionIDs()
	titles := make(map[int64]string, len(positionIDs))

	for _, positionID := range positionIDs {
		position, err := s.repos.Positions.GetByID(ctx, positionID)
		if err != nil {
			return nil, fmt.Errorf("load position %d: %w", positionID, err)
		}
		if position == nil || !position.IsActive {
			return &domain.Rejection{
				Kind:       domain.RejectInvalidSelection,
				PositionID: positionID,
				Detail:     "Invalid position selected",
			}, nil
		}
		titles[positionID] = position.Title

		candidateID := selections[positionID]
		candidate, err := s.repos.Candidates.GetByID(ctx, candidateID)
		if err != nil {
			return nil, fmt.Errorf("load candidate %d: %w", candidateID, err)
		}
		if candidate == nil || !candidate.IsActive || !candidate.Contests(positionID) {
			return &domain.Rejection{
				Kind:          domain.RejectInvalidSelection,
				PositionID:    positionID,
				PositionTitle: position.Title,
				Detail:        fmt.Sprintf("Invalid candidate selected for %s", position.Title),
			}, nil
		}
	}

	for _, positionID := range positionIDs {
		exists, err := s.repos.Votes.ExistsForVoterPosition(ctx, voter.ID, positionID)
		if err != nil {
			return nil, fmt.Errorf("check existing vote: %w", err)
		}
		if exists {
			return &domain.Rejection{
				Kind:          domain.RejectDuplicateVoteForPosition,
				PositionID:    positionID,
				PositionTitle: titles[positionID],
			}, nil
		}
	}

	return nil, nil
}

// ValidateAndCommit casts a ballot. The returned error is non-nil only for
// failures that are not a normal business rejection.
func (s *BallotService) ValidateAndCommit(ctx context.Context, req domain.BallotRequest) (*domain.BallotOutcome, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"voter_id":   req.VoterID,
		"selections": len(req.Selections),
		"client_ip":  req.ClientIP,
	})

	voter, err := s.repos.Voters.GetByID(ctx, req.VoterID)
	if err != nil {
		log.WithError(err).Error("Failed to load voter")
		return nil, fmt.Errorf("load voter: %w", err)
	}
	if voter == nil {
		return s.reject(log, &domain.Rejection{Kind: domain.RejectNotFound, Entity: "Voter"}), nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	rejection, err := s.Validate(ctx, voter, req.Selections, settings, req.Now)
	if err != nil {
		log.WithError(err).Error("Ballot validation failed")
		return nil, err
	}
	if rejection != nil {
		return s.reject(log, rejection), nil
	}

	votes := make([]domain.Vote, 0, len(req.Selections))
	for _, positionID := range req.Selections.PositionIDs() {
		votes = append(votes, domain.Vote{
			VoterID:     voter.ID,
			PositionID:  positionID,
			CandidateID: req.Selections[positionID],
			VotedAt:     req.Now,
			IPAddress:   req.ClientIP,
		})
	}

	ids, err := s.repos.Ballots.CommitBallot(ctx, voter.ID, votes, req.Now)
	switch {
	case err == nil:
	case stderrors.Is(err, repository.ErrVoterConsumed), stderrors.Is(err, repository.ErrDuplicateVote):
		log.WithError(err).Warn("Concurrent ballot conflict")
		return s.reject(log, &domain.Rejection{Kind: domain.RejectConcurrentConflict}), nil
	default:
		log.WithError(err).Error("Ballot commit failed")
		return nil, fmt.Errorf("commit ballot for voter %d: %w", voter.ID, err)
	}

	s.cache.InvalidateResults()

	log.WithField("vote_ids", ids).Info("Ballot committed")
	return domain.Accepted(ids, req.Now), nil
}

func (s *BallotService) reject(log *logger.Logger, r *domain.Rejection) *domain.BallotOutcome {
	log.WithFields(map[string]interface{}{
		"reason":      string(r.Kind),
		"state":       r.State.String(),
		"position_id": r.PositionID,
	}).Warn("Ballot rejected")
	return domain.Rejected(r)
}

package handler

import (
	"net/http"
	"time"

	"class-election/internal/domain"
	"class-election/internal/middleware"
	"class-election/internal/service"
	"class-election/pkg/errors"
	"class-election/pkg/logger"
)

const errorKindInternal domain.RejectionKind = "internal_error"

type VotingHandler struct {
	ballots service.BallotCaster
	results service.ResultsReader
	voters  service.VoterManager
	logger  *logger.Logger
	now     func() time.Time
}

func NewVotingHandler(ballots service.BallotCaster, results service.ResultsReader, voters service.VoterManager, log *logger.Logger) *VotingHandler {
	return &VotingHandler{
		ballots: ballots,
		results: results,
		voters:  voters,
		logger:  log,
		now:     time.Now,
	}
}

// BallotPageResponse is the data behind the voting page.
type BallotPageResponse struct {
	Voter           domain.VoterSummary     `json:"voter"`
	Status          domain.VotingStatus     `json:"status"`
	StatusLabel     string                  `json:"status_label"`
	VotingClosed    bool                    `json:"voting_closed"`
	VotingStartTime *time.Time              `json:"voting_start_time"`
	VotingEndTime   *time.Time              `json:"voting_end_time"`
	Positions       []domain.BallotPosition `json:"positions"`
}

// SelectionRequest is one position/candidate pair on a submitted ballot.
type SelectionRequest struct {
	PositionID  int64 `json:"position_id"`
	CandidateID int64 `json:"candidate_id"`
}

// SubmitVotesRequest is the body of POST /api/votes
type SubmitVotesRequest struct {
	Selections []SelectionRequest `json:"selections"`
}

// toSelections rejects a list naming the same position twice.
func (req SubmitVotesRequest) toSelections() (domain.Selections, error) {
	selections := make(domain.Selections, len(req.Selections))
	for _, s := range req.Selections {
		if _, dup := selections[s.PositionID]; dup {
			return nil, errors.NewValidationError("A position may only be selected once",
				map[string]interface{}{"position_id": s.PositionID})
		}
		selections[s.PositionID] = s.CandidateID
	}
	return selections, nil
}

// GetBallot handles GET /api/ballot
func (h *VotingHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	voterID, ok := middleware.VoterIDFromContext(ctx)
	if !ok {
		respondError(w, r, h.logger, errors.NewAuthenticationError("Authentication required"))
		return
	}

	voter, err := h.voters.Get(ctx, voterID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	overview, err := h.results.Overview(ctx, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := BallotPageResponse{
		Voter:           voter.Summary(),
		Status:          overview.Status,
		StatusLabel:     overview.Status.Label(),
		VotingClosed:    !overview.IsVotingOpen,
		VotingStartTime: overview.VotingStartTime,
		VotingEndTime:   overview.VotingEndTime,
		Positions:       []domain.BallotPosition{},
	}

	if overview.IsVotingOpen && !voter.HasVoted {
		positions, err := h.results.Ballot(ctx)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		resp.Positions = positions
	}

	respondJSON(w, http.StatusOK, resp)
}

// SubmitVotes handles POST /api/votes
func (h *VotingHandler) SubmitVotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	voterID, ok := middleware.VoterIDFromContext(ctx)
	if !ok {
		respondError(w, r, h.logger, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var req SubmitVotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	selections, err := req.toSelections()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	outcome, err := h.ballots.ValidateAndCommit(ctx, domain.BallotRequest{
		VoterID:    voterID,
		Selections: selections,
		ClientIP:   middleware.ClientIP(r),
		Now:        h.now(),
	})
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"voter_id":   voterID,
			"request_id": middleware.GetRequestID(ctx),
		}).Error("Ballot submission failed")
		respondJSON(w, http.StatusInternalServerError, domain.BallotOutcome{
			ErrorKind: errorKindInternal,
			Message:   "An error occurred while processing your vote. Please try again.",
		})
		return
	}

	respondJSON(w, outcomeStatus(outcome), outcome)
}

// outcomeStatus maps a ballot outcome onto its HTTP status.
func outcomeStatus(outcome *domain.BallotOutcome) int {
	if outcome.Success {
		return http.StatusCreated
	}
	switch outcome.ErrorKind {
	case domain.RejectAlreadyVoted,
		domain.RejectDuplicateVoteForPosition,
		domain.RejectConcurrentConflict:
		return http.StatusConflict
	case domain.RejectVotingNotOpen:
		return http.StatusForbidden
	case domain.RejectNoSelections:
		return http.StatusBadRequest
	case domain.RejectInvalidSelection:
		return http.StatusUnprocessableEntity
	case domain.RejectNotFound:
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

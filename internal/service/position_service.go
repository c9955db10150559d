package service

import (
	"context"
	stderrors "errors"
	"strings"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	validation "github.com/go-ozzo/ozzo-validation"
)

// PositionInput describes a position to create.
type PositionInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (in PositionInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 100)),
	)
}

type PositionService struct {
	repos  *repository.Repositories
	cache  *CacheService
	logger *logger.Logger
}

func NewPositionService(repos *repository.Repositories, cache *CacheService, log *logger.Logger) *PositionService {
	return &PositionService{
		repos:  repos,
		cache:  cache,
		logger: log,
	}
}

// Create adds an active position. Titles are unique.
func (s *PositionService) Create(ctx context.Context, in PositionInput) (*domain.Position, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return nil, errors.FromValidation("Invalid position", err)
	}

	position := &domain.Position{Title: in.Title, Description: in.Description, IsActive: true}
	if err := s.repos.Positions.Create(ctx, position); err != nil {
		if stderrors.Is(err, repository.ErrDuplicateKey) {
			return nil, errors.NewConflictError("A position with this title already exists")
		}
		return nil, errors.NewInternalError("Failed to create position", err)
	}

	s.cache.InvalidateResults()
	s.logger.WithFields(map[string]interface{}{
		"position_id": position.ID,
		"title":       position.Title,
	}).Info("Position created")
	return position, nil
}

// SetActive shows or hides a position on the ballot and in results.
func (s *PositionService) SetActive(ctx context.Context, id int64, active bool) (*domain.Position, error) {
	if err := s.repos.Positions.SetActive(ctx, id, active); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError("Position not found")
		}
		return nil, errors.NewInternalError("Failed to update position", err)
	}

	position, err := s.repos.Positions.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load position", err)
	}
	if position == nil {
		return nil, errors.NewNotFoundError("Position not found")
	}

	s.cache.InvalidateResults()
	s.logger.WithFields(map[string]interface{}{
		"position_id": id,
		"is_active":   active,
	}).Info("Position visibility changed")
	return position, nil
}

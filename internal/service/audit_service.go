package service

import (
	"context"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/errors"
	"class-election/pkg/logger"
)

type AuditService struct {
	votes  repository.VoteRepository
	logger *logger.Logger
}

func NewAuditService(votes repository.VoteRepository, log *logger.Logger) *AuditService {
	return &AuditService{votes: votes, logger: log}
}

// Trail lists committed votes newest first.
func (s *AuditService) Trail(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	entries, err := s.votes.ListAudit(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load audit trail")
		return nil, errors.NewInternalError("Failed to load audit trail", err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

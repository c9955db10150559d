package service

import (
	"context"
	"testing"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository/memory"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsService() *SettingsService {
	return NewSettingsService(memory.NewStore().Repositories().Settings, "audit2025", "AUDIT-CODE", logger.NewNop())
}

func ptr[T any](v T) *T { return &v }

func TestSettingsService_LazyDefaults(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()

	settings, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SettingsID, settings.ID)
	assert.Equal(t, domain.DefaultElectionTitle, settings.ElectionTitle)
	assert.True(t, settings.ShowLiveResults)
	assert.Nil(t, settings.VotingStartTime)

	status, _, err := s.Status(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotConfigured, status)

	assert.NoError(t, s.VerifyAuditCredentials(ctx, "audit2025", "AUDIT-CODE"))
}

func TestSettingsService_UpdateKeepsSingleRow(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()

	first, err := s.Update(ctx, SettingsUpdate{ElectionTitle: ptr("Class Rep 2025")})
	require.NoError(t, err)
	second, err := s.Update(ctx, SettingsUpdate{ResultsRefreshInterval: ptr(10)})
	require.NoError(t, err)

	assert.Equal(t, domain.SettingsID, first.ID)
	assert.Equal(t, domain.SettingsID, second.ID)
	assert.Equal(t, "Class Rep 2025", second.ElectionTitle)
	assert.Equal(t, 10, second.ResultsRefreshInterval)
}

func TestSettingsService_UpdateValidation(t *testing.T) {
	start := windowStart
	before := windowStart.Add(-time.Hour)

	tests := []struct {
		name   string
		update SettingsUpdate
		field  string
	}{
		{name: "empty title", update: SettingsUpdate{ElectionTitle: ptr("")}, field: "election_title"},
		{name: "zero refresh interval", update: SettingsUpdate{ResultsRefreshInterval: ptr(0)}, field: "results_refresh_interval"},
		{name: "bad email", update: SettingsUpdate{TechnicalHeadEmail: ptr("not-an-email")}, field: "technical_head_email"},
		{name: "short password", update: SettingsUpdate{AuditPassword: ptr("abc")}, field: "audit_password"},
		{name: "end before start", update: SettingsUpdate{VotingStartTime: &start, VotingEndTime: &before}, field: "voting_end_time"},
		{name: "end equals start", update: SettingsUpdate{VotingStartTime: &start, VotingEndTime: &start}, field: "voting_end_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSettingsService()
			_, err := s.Update(context.Background(), tt.update)
			appErr, ok := errors.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestSettingsService_WindowAndClear(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()
	start, end := windowStart, windowEnd

	_, err := s.Update(ctx, SettingsUpdate{VotingStartTime: &start, VotingEndTime: &end})
	require.NoError(t, err)

	status, _, err := s.Status(ctx, duringVote)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, status)

	// Moving only the end still checks against the stored start.
	early := windowStart.Add(-time.Minute)
	_, err = s.Update(ctx, SettingsUpdate{VotingEndTime: &early})
	assert.Error(t, err)

	_, err = s.Update(ctx, SettingsUpdate{ClearVotingWindow: true})
	require.NoError(t, err)
	status, _, err = s.Status(ctx, duringVote)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotConfigured, status)
}

func TestSettingsService_AuditCredentials(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()

	assert.Error(t, s.VerifyAuditCredentials(ctx, "audit2025", "WRONG"))
	assert.Error(t, s.VerifyAuditCredentials(ctx, "wrong", "AUDIT-CODE"))

	_, err := s.Update(ctx, SettingsUpdate{AuditPassword: ptr("new-secret"), AuditAccessCode: ptr("CODE-2")})
	require.NoError(t, err)

	assert.Error(t, s.VerifyAuditCredentials(ctx, "audit2025", "AUDIT-CODE"))
	assert.NoError(t, s.VerifyAuditCredentials(ctx, "new-secret", "CODE-2"))

	settings, err := s.Get(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "new-secret", settings.AuditPasswordHash)
}

package service

import (
	"context"
	"testing"
	"time"

	"class-election/internal/domain"
	"class-election/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_Trail(t *testing.T) {
	f := newFixture(t)
	f.openWindow(t)
	ctx := context.Background()
	audit := NewAuditService(f.repos.Votes, logger.NewNop())

	entries, err := audit.Trail(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	jane := f.addVoter(t, "Jane Smith", "2021002")
	john := f.addVoter(t, "John Doe", "2021001")
	require.True(t, f.cast(t, jane.ID, domain.Selections{f.president.ID: f.alice.ID}, duringVote).Success)
	require.True(t, f.cast(t, john.ID, domain.Selections{f.president.ID: f.bob.ID, f.secretary.ID: f.carol.ID}, duringVote.Add(time.Minute)).Success)

	entries, err = audit.Trail(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "John Doe", entries[0].VoterName)
	assert.Equal(t, "Jane Smith", entries[2].VoterName)
	assert.Equal(t, "Alice", entries[2].CandidateName)
	assert.Equal(t, "President", entries[2].PositionTitle)
	assert.Equal(t, "192.0.2.10", entries[2].IPAddress)

	entries, err = audit.Trail(ctx, domain.AuditFilter{PositionID: &f.secretary.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Carol", entries[0].CandidateName)

	entries, err = audit.Trail(ctx, domain.AuditFilter{Voter: "JANE"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = audit.Trail(ctx, domain.AuditFilter{Voter: "202100"})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

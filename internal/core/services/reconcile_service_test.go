package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/ballotbox/internal/testutil"
)

func TestReconcileOpenPolls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := testutil.CreateUsers(t, f.db, "user", 2)

	growing := f.createPoll(t, "growing", "a")
	full := f.createPoll(t, "full", "a")
	for _, u := range users {
		v, err := f.voters.GetByPollAndUser(ctx, full.ID, u.ID)
		require.NoError(t, err)
		_, err = f.voters.MarkVoted(ctx, v.ID)
		require.NoError(t, err)
	}
	require.True(t, f.reload(t, full.ID).IsOpen)

	svc := NewReconcileService(f.polls, f.lifecycle, 4)
	require.NoError(t, svc.ReconcileOpenPolls(ctx))

	assert.False(t, f.reload(t, full.ID).IsOpen)

	testutil.CreateUsers(t, f.db, "late", 1)
	require.NoError(t, svc.ReconcileOpenPolls(ctx))

	eligible, err := f.pollSvc.EligibleVoterCount(ctx, growing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, eligible)
	assert.True(t, f.reload(t, growing.ID).IsOpen)

	// closed polls are left alone
	eligible, err = f.pollSvc.EligibleVoterCount(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, eligible)
}

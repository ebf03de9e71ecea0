package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/testutil"
)

func TestVotingClosesPollOnFullTurnout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := testutil.CreateUsers(t, f.db, "user", 3)
	p := f.createPoll(t, "P1", "one", "two", "three")

	t.Run("first vote keeps the poll open", func(t *testing.T) {
		assert.Equal(t, domain.PollStatusOpen, f.vote(t, p, 1, users[0]))

		got := f.reload(t, p.ID)
		assert.True(t, got.IsOpen)
		assert.Equal(t, 1, got.Choices[1].Votes)
		assert.Equal(t, 1, got.TotalVotes())

		eligible, voted, err := f.voters.Counts(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, eligible)
		assert.Equal(t, 1, voted)
	})

	t.Run("last vote closes the poll", func(t *testing.T) {
		assert.Equal(t, domain.PollStatusOpen, f.vote(t, p, 1, users[1]))
		assert.Equal(t, domain.PollStatusClosed, f.vote(t, p, 0, users[2]))

		got := f.reload(t, p.ID)
		assert.False(t, got.IsOpen)
		winner := got.Winner()
		require.NotNil(t, winner)
		assert.Equal(t, "two", winner.Text)
		assert.Equal(t, 2, winner.Votes)
		assert.Equal(t, 3, got.TotalVotes())
	})

	t.Run("closed poll rejects further votes", func(t *testing.T) {
		_, err := f.voteSvc.Vote(ctx, ports.VoteInput{PollID: p.ID, ChoiceID: p.Choices[2].ID, UserID: users[0].ID})
		assert.ErrorIs(t, err, domain.ErrPollClosed)
		assert.Equal(t, 3, f.reload(t, p.ID).TotalVotes())
	})

	t.Run("reopen resets tallies and voters", func(t *testing.T) {
		ok, err := f.lifecycle.Reopen(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		got := f.reload(t, p.ID)
		assert.True(t, got.IsOpen)
		for _, c := range got.Choices {
			assert.Zero(t, c.Votes)
		}

		voters, err := f.voters.ListByPoll(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, voters, 3)
		for _, v := range voters {
			assert.False(t, v.HasVoted)
		}

		open, err := f.lifecycle.RecomputeStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, open)
	})
}

func TestRecordVoteRejectsChoiceOfAnotherPoll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := testutil.CreateUsers(t, f.db, "user", 2)
	p := f.createPoll(t, "first", "a", "b")
	other := f.createPoll(t, "second", "x", "y")

	_, err := f.voteSvc.Vote(ctx, ports.VoteInput{PollID: p.ID, ChoiceID: other.Choices[0].ID, UserID: users[0].ID})
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	_, err = f.voteSvc.Vote(ctx, ports.VoteInput{PollID: p.ID, ChoiceID: uuid.New(), UserID: users[0].ID})
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	assert.Zero(t, f.reload(t, p.ID).TotalVotes())
	assert.Zero(t, f.reload(t, other.ID).TotalVotes())

	voter, err := f.voters.GetByPollAndUser(ctx, p.ID, users[0].ID)
	require.NoError(t, err)
	assert.False(t, voter.HasVoted)
}

func TestRecordVoteOncePerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := testutil.CreateUsers(t, f.db, "user", 2)
	p := f.createPoll(t, "q", "a", "b")

	f.vote(t, p, 0, users[0])
	_, err := f.voteSvc.Vote(ctx, ports.VoteInput{PollID: p.ID, ChoiceID: p.Choices[1].ID, UserID: users[0].ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	got := f.reload(t, p.ID)
	assert.Equal(t, 1, got.TotalVotes())
	assert.Equal(t, 1, got.Choices[0].Votes)
}

func TestRecordVoteHidesPollFromNonVoters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.CreateUsers(t, f.db, "early", 1)
	p := f.createPoll(t, "q", "a")
	late := testutil.CreateUsers(t, f.db, "late", 1)

	_, err := f.voteSvc.Vote(ctx, ports.VoteInput{PollID: p.ID, ChoiceID: p.Choices[0].ID, UserID: late[0].ID})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = f.voteSvc.Vote(ctx, ports.VoteInput{PollID: uuid.New(), ChoiceID: p.Choices[0].ID, UserID: late[0].ID})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestRecordVoteOnUnpublishedPoll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := testutil.CreateUsers(t, f.db, "user", 1)

	p, err := f.pollSvc.CreatePollWithVoters(ctx, ports.CreatePollInput{
		Question: "later",
		PubDate:  time.Now().Add(48 * time.Hour),
		Choices:  []string{"a"},
	})
	require.NoError(t, err)

	_, err = f.voteSvc.Vote(ctx, ports.VoteInput{PollID: p.ID, ChoiceID: p.Choices[0].ID, UserID: users[0].ID})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestRegisterVoters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.CreateUsers(t, f.db, "user", 3)
	p := f.createPoll(t, "q", "a")

	t.Run("poll creation registers every user", func(t *testing.T) {
		voters, err := f.voters.ListByPoll(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, voters, 3)
		assert.Equal(t, "user1", voters[0].Username)
	})

	t.Run("no-op when everyone is registered", func(t *testing.T) {
		created, err := f.lifecycle.RegisterVoters(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, created)

		eligible, err := f.pollSvc.EligibleVoterCount(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, eligible)
	})

	t.Run("new users are added in username order", func(t *testing.T) {
		testutil.CreateUsers(t, f.db, "zed", 1)
		testutil.CreateUsers(t, f.db, "amy", 1)

		created, err := f.lifecycle.RegisterVoters(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, "amy1", created[0].Username)
		assert.Equal(t, "zed1", created[1].Username)
		assert.False(t, created[0].HasVoted)

		eligible, err := f.pollSvc.EligibleVoterCount(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, eligible)
	})

	t.Run("missing poll", func(t *testing.T) {
		_, err := f.lifecycle.RegisterVoters(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})
}

func TestRecomputeStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("poll without voters stays open", func(t *testing.T) {
		p := f.createPoll(t, "empty", "a")
		for range 2 {
			open, err := f.lifecycle.RecomputeStatus(ctx, p.ID)
			require.NoError(t, err)
			assert.True(t, open)
		}
	})

	t.Run("idempotent once closed", func(t *testing.T) {
		users := testutil.CreateUsers(t, f.db, "user", 2)
		p := f.createPoll(t, "full", "a")
		for _, u := range users {
			v, err := f.voters.GetByPollAndUser(ctx, p.ID, u.ID)
			require.NoError(t, err)
			_, err = f.voters.MarkVoted(ctx, v.ID)
			require.NoError(t, err)
		}

		first, err := f.lifecycle.RecomputeStatus(ctx, p.ID)
		require.NoError(t, err)
		second, err := f.lifecycle.RecomputeStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, first)
		assert.Equal(t, first, second)
	})

	t.Run("never reopens a closed poll", func(t *testing.T) {
		p := f.createPoll(t, "closed by hand", "a")
		require.NoError(t, f.polls.SetOpen(ctx, p.ID, false))

		open, err := f.lifecycle.RecomputeStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, open)
	})
}

func TestReopenMany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := testutil.CreateUsers(t, f.db, "user", 1)
	first := f.createPoll(t, "first", "a")
	second := f.createPoll(t, "second", "a")
	f.vote(t, first, 0, users[0])
	f.vote(t, second, 0, users[0])

	require.NoError(t, f.lifecycle.ReopenMany(ctx, []uuid.UUID{first.ID, second.ID}))
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got := f.reload(t, id)
		assert.True(t, got.IsOpen)
		assert.Zero(t, got.TotalVotes())
	}

	err := f.lifecycle.ReopenMany(ctx, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	t.Run("unknown id leaves every poll untouched", func(t *testing.T) {
		f.vote(t, first, 0, users[0])
		require.False(t, f.reload(t, first.ID).IsOpen)

		err := f.lifecycle.ReopenMany(ctx, []uuid.UUID{first.ID, uuid.New()})
		assert.ErrorIs(t, err, domain.ErrPollNotFound)

		got := f.reload(t, first.ID)
		assert.False(t, got.IsOpen)
		assert.Equal(t, 1, got.TotalVotes())
	})
}

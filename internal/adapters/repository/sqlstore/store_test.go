package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/testutil"
)

func newPoll(question string, pubDate time.Time, choices ...string) *domain.Poll {
	p := &domain.Poll{
		ID:        uuid.New(),
		Question:  question,
		PubDate:   pubDate,
		IsOpen:    true,
		CreatedAt: time.Now(),
	}
	for i, text := range choices {
		p.Choices = append(p.Choices, domain.Choice{ID: uuid.New(), PollID: p.ID, Text: text, Position: i})
	}
	return p
}

func TestPollRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := sqlstore.NewPollRepository(db)

	now := time.Now()
	older := newPoll("older", now.Add(-48*time.Hour), "a", "b")
	newer := newPoll("newer", now.Add(-time.Hour), "x", "y", "z")
	future := newPoll("future", now.Add(48*time.Hour), "f")
	for _, p := range []*domain.Poll{older, newer, future} {
		require.NoError(t, repo.Create(ctx, p))
	}

	t.Run("get by id loads choices in position order", func(t *testing.T) {
		got, err := repo.GetByID(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, "newer", got.Question)
		assert.True(t, got.IsOpen)
		require.Len(t, got.Choices, 3)
		assert.Equal(t, "x", got.Choices[0].Text)
		assert.Equal(t, "z", got.Choices[2].Text)
		assert.WithinDuration(t, newer.PubDate, got.PubDate, time.Millisecond)
	})

	t.Run("missing poll", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})

	t.Run("duplicate question", func(t *testing.T) {
		err := repo.Create(ctx, newPoll("older", now))
		assert.ErrorIs(t, err, domain.ErrDuplicateQuestion)
	})

	t.Run("published polls newest first", func(t *testing.T) {
		polls, err := repo.ListPublished(ctx, now)
		require.NoError(t, err)
		require.Len(t, polls, 2)
		assert.Equal(t, newer.ID, polls[0].ID)
		assert.Equal(t, older.ID, polls[1].ID)
	})

	t.Run("search is case insensitive and includes unpublished", func(t *testing.T) {
		polls, err := repo.Search(ctx, 10, 0, "FUT")
		require.NoError(t, err)
		require.Len(t, polls, 1)
		assert.Equal(t, future.ID, polls[0].ID)
	})

	t.Run("set open", func(t *testing.T) {
		require.NoError(t, repo.SetOpen(ctx, older.ID, false))
		open, err := repo.ListOpen(ctx)
		require.NoError(t, err)
		assert.Len(t, open, 2)

		assert.ErrorIs(t, repo.SetOpen(ctx, uuid.New(), false), domain.ErrPollNotFound)
	})
}

func TestChoiceRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	polls := sqlstore.NewPollRepository(db)
	choices := sqlstore.NewChoiceRepository(db)

	p := newPoll("q", time.Now(), "a", "b")
	other := newPoll("other", time.Now(), "o")
	require.NoError(t, polls.Create(ctx, p))
	require.NoError(t, polls.Create(ctx, other))

	c := &domain.Choice{ID: uuid.New(), PollID: p.ID, Text: "c"}
	require.NoError(t, choices.Add(ctx, c))
	assert.Equal(t, 2, c.Position)

	require.NoError(t, choices.IncrementVotes(ctx, p.ID, c.ID))
	require.NoError(t, choices.IncrementVotes(ctx, p.ID, c.ID))
	require.NoError(t, choices.IncrementVotes(ctx, p.ID, p.Choices[1].ID))

	err := choices.IncrementVotes(ctx, p.ID, other.Choices[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	ranked, err := choices.Ranked(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{ranked[0].Text, ranked[1].Text, ranked[2].Text})
	assert.Equal(t, 2, ranked[0].Votes)

	require.NoError(t, choices.ResetVotes(ctx, p.ID))
	got, err := polls.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalVotes())
}

func TestVoterRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	users := testutil.CreateUsers(t, db, "voter", 3)
	polls := sqlstore.NewPollRepository(db)
	voters := sqlstore.NewVoterRepository(db)

	p := newPoll("q", time.Now(), "a")
	require.NoError(t, polls.Create(ctx, p))

	for _, u := range users {
		added, err := voters.Create(ctx, &domain.Voter{ID: uuid.New(), PollID: p.ID, UserID: u.ID})
		require.NoError(t, err)
		assert.True(t, added)
	}

	t.Run("duplicate pair is ignored", func(t *testing.T) {
		added, err := voters.Create(ctx, &domain.Voter{ID: uuid.New(), PollID: p.ID, UserID: users[0].ID})
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("list is sorted by username", func(t *testing.T) {
		list, err := voters.ListByPoll(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "voter1", list[0].Username)
		assert.Equal(t, "voter3", list[2].Username)
	})

	t.Run("mark voted only once", func(t *testing.T) {
		v, err := voters.GetByPollAndUser(ctx, p.ID, users[1].ID)
		require.NoError(t, err)
		require.NotNil(t, v)

		ok, err := voters.MarkVoted(ctx, v.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = voters.MarkVoted(ctx, v.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		eligible, voted, err := voters.Counts(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, eligible)
		assert.Equal(t, 1, voted)

		byPoll, err := voters.ListByUser(ctx, users[1].ID)
		require.NoError(t, err)
		assert.True(t, byPoll[p.ID].HasVoted)
	})

	t.Run("reset all", func(t *testing.T) {
		require.NoError(t, voters.ResetAll(ctx, p.ID))
		_, voted, err := voters.Counts(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, voted)
	})

	t.Run("unknown voter", func(t *testing.T) {
		v, err := voters.GetByPollAndUser(ctx, p.ID, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestUserAndAuthRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	users := sqlstore.NewUserRepository(db)
	auth := sqlstore.NewAuthRepository(db)

	u := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsStaff: true}
	require.NoError(t, users.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)

	assert.ErrorIs(t, users.Create(ctx, &domain.User{Username: "alice"}), domain.ErrDuplicateUsername)

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsStaff)

	_, err = users.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	token := &domain.RefreshToken{UserID: u.ID, TokenHash: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, auth.StoreRefreshToken(ctx, token))

	stored, err := auth.GetRefreshTokenByHash(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Revoked)

	require.NoError(t, auth.RevokeRefreshToken(ctx, stored.ID.String()))
	stored, err = auth.GetRefreshTokenByHash(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, stored.Revoked)

	missing, err := auth.GetRefreshTokenByHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	polls := sqlstore.NewPollRepository(db)

	boom := errors.New("boom")
	err := db.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, polls.Create(ctx, newPoll("rolled back", time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := polls.Search(ctx, 10, 0, "rolled")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMigrationFile(t *testing.T) {
	content, err := sqlstore.MigrationFile("init.up")
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS voters")

	_, err = sqlstore.MigrationFile("missing")
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	d, err := sqlstore.ParseDialect("SQLite3")
	require.NoError(t, err)
	assert.Equal(t, sqlstore.SQLite, d)

	d, err = sqlstore.ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, sqlstore.Postgres, d)

	_, err = sqlstore.ParseDialect("mysql")
	assert.Error(t, err)
}

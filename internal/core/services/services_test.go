package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/cache"
	"github.com/vncsmyrnk/ballotbox/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/testutil"
)

type fixture struct {
	db        *sqlstore.DB
	polls     ports.PollRepository
	choices   ports.ChoiceRepository
	voters    ports.VoterRepository
	users     ports.UserRepository
	cache     ports.ResultsCache
	lifecycle ports.LifecycleService
	pollSvc   ports.PollService
	voteSvc   ports.VoteService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	results, err := cache.NewResultsCache(16)
	require.NoError(t, err)

	f := &fixture{
		db:      db,
		polls:   sqlstore.NewPollRepository(db),
		choices: sqlstore.NewChoiceRepository(db),
		voters:  sqlstore.NewVoterRepository(db),
		users:   sqlstore.NewUserRepository(db),
		cache:   results,
	}
	f.lifecycle = NewLifecycleService(db, f.polls, f.choices, f.voters, f.users, f.cache)
	f.pollSvc = NewPollService(db, f.polls, f.choices, f.voters, f.lifecycle, f.cache)
	f.voteSvc = NewVoteService(db, f.polls, f.choices, f.voters, f.lifecycle)
	return f
}

func (f *fixture) createPoll(t *testing.T, question string, choices ...string) *domain.Poll {
	t.Helper()

	p, err := f.pollSvc.CreatePollWithVoters(context.Background(), ports.CreatePollInput{
		Question: question,
		PubDate:  testutil.PastDate(),
		Choices:  choices,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *domain.Poll {
	t.Helper()

	p, err := f.polls.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) vote(t *testing.T, p *domain.Poll, choice int, user domain.User) domain.PollStatus {
	t.Helper()

	status, err := f.voteSvc.Vote(context.Background(), ports.VoteInput{
		PollID:   p.ID,
		ChoiceID: p.Choices[choice].ID,
		UserID:   user.ID,
	})
	require.NoError(t, err)
	return status
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

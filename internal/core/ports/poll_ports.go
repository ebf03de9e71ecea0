package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
)

// Transactor runs fn inside a single database transaction. Repositories
// called with the ctx handed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	// GetByIDForUpdate locks the poll row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListPublished(ctx context.Context, now time.Time) ([]*domain.Poll, error)
	ListOpen(ctx context.Context) ([]*domain.Poll, error)
	Search(ctx context.Context, limit, offset int, query string) ([]*domain.Poll, error)
	SetOpen(ctx context.Context, id uuid.UUID, open bool) error
}

type ChoiceRepository interface {
	Add(ctx context.Context, choice *domain.Choice) error
	IncrementVotes(ctx context.Context, pollID, choiceID uuid.UUID) error
	ResetVotes(ctx context.Context, pollID uuid.UUID) error
	Ranked(ctx context.Context, pollID uuid.UUID) ([]domain.Choice, error)
}

type VoterRepository interface {
	// Create inserts the voter unless one already exists for the pair; it reports whether a row was added.
	Create(ctx context.Context, voter *domain.Voter) (bool, error)
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]domain.Voter, error)
	ListByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]domain.Voter, error)
	GetByPollAndUser(ctx context.Context, pollID, userID uuid.UUID) (*domain.Voter, error)
	// MarkVoted flips has_voted from false to true; false means it was already set.
	MarkVoted(ctx context.Context, voterID uuid.UUID) (bool, error)
	ResetAll(ctx context.Context, pollID uuid.UUID) error
	Counts(ctx context.Context, pollID uuid.UUID) (eligible int, voted int, err error)
}

type ResultsCache interface {
	Get(pollID uuid.UUID) (*domain.Results, bool)
	Set(pollID uuid.UUID, results *domain.Results)
	Invalidate(pollID uuid.UUID)
}

type CreatePollInput struct {
	Question string
	PubDate  time.Time
	Choices  []string
}

type SearchPollsInput struct {
	Page  int
	Query string
}

type PollService interface {
	CreatePollWithVoters(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	AddChoice(ctx context.Context, pollID uuid.UUID, text string) (*domain.Choice, error)
	GetPoll(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListPublished(ctx context.Context) ([]*domain.Poll, error)
	Search(ctx context.Context, input SearchPollsInput) ([]*domain.Poll, error)
	Overview(ctx context.Context, userID uuid.UUID) ([]domain.PollOverview, error)
	Access(ctx context.Context, pollID, userID uuid.UUID, guards ...domain.Guard) (*domain.PollAccess, error)
	Voters(ctx context.Context, pollID uuid.UUID) ([]domain.Voter, error)
	Results(ctx context.Context, pollID uuid.UUID) (*domain.Results, error)
	EligibleVoterCount(ctx context.Context, pollID uuid.UUID) (int, error)
}

// LifecycleService owns every transition of a poll's open flag.
type LifecycleService interface {
	RegisterVoters(ctx context.Context, pollID uuid.UUID) ([]domain.Voter, error)
	RecordVote(ctx context.Context, pollID, choiceID, userID uuid.UUID) (domain.PollStatus, error)
	RecomputeStatus(ctx context.Context, pollID uuid.UUID) (bool, error)
	Reopen(ctx context.Context, pollID uuid.UUID) (bool, error)
	ReopenMany(ctx context.Context, pollIDs []uuid.UUID) error
}

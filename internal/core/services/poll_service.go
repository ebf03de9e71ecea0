package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
)

const searchPageSize = 20

type pollService struct {
	tx        ports.Transactor
	polls     ports.PollRepository
	choices   ports.ChoiceRepository
	voters    ports.VoterRepository
	lifecycle ports.LifecycleService
	cache     ports.ResultsCache
	now       func() time.Time
	log       *logrus.Entry
}

func NewPollService(
	tx ports.Transactor,
	polls ports.PollRepository,
	choices ports.ChoiceRepository,
	voters ports.VoterRepository,
	lifecycle ports.LifecycleService,
	cache ports.ResultsCache,
) ports.PollService {
	return &pollService{
		tx:        tx,
		polls:     polls,
		choices:   choices,
		voters:    voters,
		lifecycle: lifecycle,
		cache:     cache,
		now:       time.Now,
		log:       logging.For("polls"),
	}
}

// CreatePollWithVoters stores an open poll with its choices and registers
// every known user as a voter.
func (s *pollService) CreatePollWithVoters(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrQuestionRequired
	}

	now := s.now()
	pubDate := input.PubDate
	if pubDate.IsZero() {
		pubDate = now
	}

	poll := &domain.Poll{
		ID:        uuid.New(),
		Question:  question,
		PubDate:   pubDate,
		IsOpen:    true,
		CreatedAt: now,
	}
	for _, text := range input.Choices {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		poll.Choices = append(poll.Choices, domain.Choice{
			ID:       uuid.New(),
			PollID:   poll.ID,
			Text:     text,
			Position: len(poll.Choices),
		})
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.polls.Create(ctx, poll); err != nil {
			return err
		}
		_, err := s.lifecycle.RegisterVoters(ctx, poll.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"poll_id": poll.ID, "choices": len(poll.Choices)}).Info("poll created")
	return poll, nil
}

func (s *pollService) AddChoice(ctx context.Context, pollID uuid.UUID, text string) (*domain.Choice, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrChoiceTextRequired
	}

	choice := &domain.Choice{
		ID:     uuid.New(),
		PollID: pollID,
		Text:   text,
	}
	// The poll row lock serializes position assignment.
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.polls.GetByIDForUpdate(ctx, pollID); err != nil {
			return err
		}
		return s.choices.Add(ctx, choice)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(pollID)
	return choice, nil
}

// GetPoll hides polls that are not published yet.
func (s *pollService) GetPoll(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !poll.IsPublished(s.now()) {
		return nil, domain.ErrPollNotFound
	}
	return poll, nil
}

func (s *pollService) ListPublished(ctx context.Context) ([]*domain.Poll, error) {
	return s.polls.ListPublished(ctx, s.now())
}

func (s *pollService) Search(ctx context.Context, input ports.SearchPollsInput) ([]*domain.Poll, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	return s.polls.Search(ctx, searchPageSize, (page-1)*searchPageSize, strings.TrimSpace(input.Query))
}

// Overview lists the published polls userID is a voter of, tagged with the
// status that user sees.
func (s *pollService) Overview(ctx context.Context, userID uuid.UUID) ([]domain.PollOverview, error) {
	polls, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	mine, err := s.voters.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	overview := make([]domain.PollOverview, 0, len(polls))
	for _, p := range polls {
		voter, ok := mine[p.ID]
		if !ok {
			continue
		}

		eligible, voted, err := s.voters.Counts(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		item := domain.PollOverview{
			Poll:     p,
			Eligible: eligible,
			Voted:    voted,
			Pending:  eligible - voted,
		}
		switch {
		case p.IsOpen && !voter.HasVoted:
			item.Status = domain.OverviewUserOpen
		case p.IsOpen:
			item.Status = domain.OverviewOpen
		default:
			item.Status = domain.OverviewClosed
			item.Winner = p.Winner()
		}
		overview = append(overview, item)
	}
	return overview, nil
}

// Access resolves the poll and the caller's voter record, then applies guards.
// Users that are not voters of the poll get ErrPollNotFound.
func (s *pollService) Access(ctx context.Context, pollID, userID uuid.UUID, guards ...domain.Guard) (*domain.PollAccess, error) {
	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	voter, err := s.voters.GetByPollAndUser(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	if voter == nil {
		return nil, domain.ErrPollNotFound
	}

	access := &domain.PollAccess{Poll: poll, Voter: voter}
	if err := access.Check(guards...); err != nil {
		return nil, err
	}
	return access, nil
}

func (s *pollService) Voters(ctx context.Context, pollID uuid.UUID) ([]domain.Voter, error) {
	if _, err := s.polls.GetByID(ctx, pollID); err != nil {
		return nil, err
	}
	return s.voters.ListByPoll(ctx, pollID)
}

// Results ranks choices by tally. Results of closed polls are cached until reopened.
func (s *pollService) Results(ctx context.Context, pollID uuid.UUID) (*domain.Results, error) {
	if res, ok := s.cache.Get(pollID); ok {
		return res, nil
	}

	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	ranked, err := s.choices.Ranked(ctx, pollID)
	if err != nil {
		return nil, err
	}

	res := domain.NewResults(poll, ranked)
	if !poll.IsOpen {
		s.cache.Set(pollID, res)
	}
	return res, nil
}

func (s *pollService) EligibleVoterCount(ctx context.Context, pollID uuid.UUID) (int, error) {
	if _, err := s.polls.GetByID(ctx, pollID); err != nil {
		return 0, err
	}
	eligible, _, err := s.voters.Counts(ctx, pollID)
	return eligible, err
}

package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
)

type lifecycleService struct {
	tx      ports.Transactor
	polls   ports.PollRepository
	choices ports.ChoiceRepository
	voters  ports.VoterRepository
	users   ports.UserRepository
	cache   ports.ResultsCache
	now     func() time.Time
	log     *logrus.Entry
}

func NewLifecycleService(
	tx ports.Transactor,
	polls ports.PollRepository,
	choices ports.ChoiceRepository,
	voters ports.VoterRepository,
	users ports.UserRepository,
	cache ports.ResultsCache,
) ports.LifecycleService {
	return &lifecycleService{
		tx:      tx,
		polls:   polls,
		choices: choices,
		voters:  voters,
		users:   users,
		cache:   cache,
		now:     time.Now,
		log:     logging.For("lifecycle"),
	}
}

// RegisterVoters adds a voter for every user not yet registered on the poll,
// in username order, and returns the voters it created.
func (s *lifecycleService) RegisterVoters(ctx context.Context, pollID uuid.UUID) ([]domain.Voter, error) {
	var created []domain.Voter
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.polls.GetByID(ctx, pollID); err != nil {
			return err
		}

		users, err := s.users.List(ctx)
		if err != nil {
			return err
		}
		existing, err := s.voters.ListByPoll(ctx, pollID)
		if err != nil {
			return err
		}

		registered := make(map[string]struct{}, len(existing))
		for _, v := range existing {
			registered[v.Username] = struct{}{}
		}

		missing := make([]domain.User, 0, len(users))
		for _, u := range users {
			if _, ok := registered[u.Username]; !ok {
				missing = append(missing, u)
			}
		}
		sort.Slice(missing, func(i, j int) bool { return missing[i].Username < missing[j].Username })

		created = make([]domain.Voter, 0, len(missing))
		for _, u := range missing {
			voter := domain.Voter{
				ID:       uuid.New(),
				PollID:   pollID,
				UserID:   u.ID,
				Username: u.Username,
			}
			ok, err := s.voters.Create(ctx, &voter)
			if err != nil {
				return err
			}
			if ok {
				created = append(created, voter)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		s.log.WithFields(logrus.Fields{"poll_id": pollID, "count": len(created)}).Info("registered voters")
	}
	return created, nil
}

// RecordVote casts userID's single vote for choiceID and recomputes the poll
// status, all in one transaction.
func (s *lifecycleService) RecordVote(ctx context.Context, pollID, choiceID, userID uuid.UUID) (domain.PollStatus, error) {
	var status domain.PollStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		poll, err := s.polls.GetByIDForUpdate(ctx, pollID)
		if err != nil {
			return err
		}
		if !poll.IsPublished(s.now()) {
			return domain.ErrPollNotFound
		}

		voter, err := s.voters.GetByPollAndUser(ctx, pollID, userID)
		if err != nil {
			return err
		}
		if voter == nil {
			return domain.ErrPollNotFound
		}
		if !poll.IsOpen {
			return domain.ErrPollClosed
		}
		if _, ok := poll.Choice(choiceID); !ok {
			return domain.ErrInvalidChoice
		}

		marked, err := s.voters.MarkVoted(ctx, voter.ID)
		if err != nil {
			return err
		}
		if !marked {
			return domain.ErrAlreadyVoted
		}
		if err := s.choices.IncrementVotes(ctx, pollID, choiceID); err != nil {
			return err
		}

		open, err := s.recompute(ctx, poll)
		if err != nil {
			return err
		}
		status = domain.StatusOf(open)
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{"poll_id": pollID, "user_id": userID, "status": status}).Debug("vote recorded")
	return status, nil
}

// RecomputeStatus closes the poll once every eligible voter has voted. It never reopens.
func (s *lifecycleService) RecomputeStatus(ctx context.Context, pollID uuid.UUID) (bool, error) {
	var open bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		poll, err := s.polls.GetByIDForUpdate(ctx, pollID)
		if err != nil {
			return err
		}
		open, err = s.recompute(ctx, poll)
		return err
	})
	return open, err
}

func (s *lifecycleService) recompute(ctx context.Context, poll *domain.Poll) (bool, error) {
	if !poll.IsOpen {
		return false, nil
	}

	eligible, voted, err := s.voters.Counts(ctx, poll.ID)
	if err != nil {
		return false, err
	}
	if !domain.ShouldClose(eligible, voted) {
		return true, nil
	}

	if err := s.polls.SetOpen(ctx, poll.ID, false); err != nil {
		return false, err
	}
	poll.IsOpen = false
	// A results read racing an earlier reopen may have cached the previous round.
	s.cache.Invalidate(poll.ID)
	s.log.WithFields(logrus.Fields{"poll_id": poll.ID, "voters": eligible}).Info("poll closed")
	return false, nil
}

// Reopen zeroes every tally, clears every voter flag and opens the poll.
func (s *lifecycleService) Reopen(ctx context.Context, pollID uuid.UUID) (bool, error) {
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.reopen(ctx, pollID)
	}); err != nil {
		return false, err
	}

	s.cache.Invalidate(pollID)
	s.log.WithField("poll_id", pollID).Info("poll reopened")
	return true, nil
}

// ReopenMany reopens every poll or none of them.
func (s *lifecycleService) ReopenMany(ctx context.Context, pollIDs []uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range pollIDs {
			if err := s.reopen(ctx, id); err != nil {
				return errors.Wrapf(err, "failed to reopen poll %s", id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range pollIDs {
		s.cache.Invalidate(id)
	}
	s.log.WithField("count", len(pollIDs)).Info("polls reopened")
	return nil
}

func (s *lifecycleService) reopen(ctx context.Context, pollID uuid.UUID) error {
	if _, err := s.polls.GetByIDForUpdate(ctx, pollID); err != nil {
		return err
	}
	if err := s.choices.ResetVotes(ctx, pollID); err != nil {
		return err
	}
	if err := s.voters.ResetAll(ctx, pollID); err != nil {
		return err
	}
	return s.polls.SetOpen(ctx, pollID, true)
}

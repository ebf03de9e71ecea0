package services

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
)

type voteService struct {
	tx        ports.Transactor
	polls     ports.PollRepository
	choices   ports.ChoiceRepository
	voters    ports.VoterRepository
	lifecycle ports.LifecycleService
	log       *logrus.Entry
}

func NewVoteService(
	tx ports.Transactor,
	polls ports.PollRepository,
	choices ports.ChoiceRepository,
	voters ports.VoterRepository,
	lifecycle ports.LifecycleService,
) ports.VoteService {
	return &voteService{
		tx:        tx,
		polls:     polls,
		choices:   choices,
		voters:    voters,
		lifecycle: lifecycle,
		log:       logging.For("votes"),
	}
}

func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) (domain.PollStatus, error) {
	return s.lifecycle.RecordVote(ctx, input.PollID, input.ChoiceID, input.UserID)
}

// VoteRandomly casts a vote for a random choice on behalf of every voter that
// has not voted yet, visiting voters in random order.
func (s *voteService) VoteRandomly(ctx context.Context, pollID uuid.UUID) ([]domain.RandomVote, error) {
	votes := []domain.RandomVote{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		poll, err := s.polls.GetByIDForUpdate(ctx, pollID)
		if err != nil {
			return err
		}
		if !poll.IsOpen {
			return domain.ErrPollClosed
		}

		voters, err := s.voters.ListByPoll(ctx, pollID)
		if err != nil {
			return err
		}
		pending := domain.PendingVoters(voters)
		if len(pending) == 0 {
			return nil
		}
		if len(poll.Choices) == 0 {
			return domain.ErrNoChoices
		}

		rand.Shuffle(len(pending), func(i, j int) { pending[i], pending[j] = pending[j], pending[i] })
		for _, voter := range pending {
			choice := poll.Choices[rand.IntN(len(poll.Choices))]

			marked, err := s.voters.MarkVoted(ctx, voter.ID)
			if err != nil {
				return err
			}
			if !marked {
				continue
			}
			if err := s.choices.IncrementVotes(ctx, pollID, choice.ID); err != nil {
				return err
			}

			voter.HasVoted = true
			choice.Votes++
			votes = append(votes, domain.RandomVote{Voter: voter, Choice: choice})
		}

		_, err = s.lifecycle.RecomputeStatus(ctx, pollID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"poll_id": pollID, "votes": len(votes)}).Info("random votes cast")
	return votes, nil
}

// VoteRandomlyMany runs VoteRandomly for each poll, skipping closed ones.
func (s *voteService) VoteRandomlyMany(ctx context.Context, pollIDs []uuid.UUID) ([]domain.RandomVote, error) {
	all := []domain.RandomVote{}
	for _, id := range pollIDs {
		votes, err := s.VoteRandomly(ctx, id)
		if errors.Is(err, domain.ErrPollClosed) {
			s.log.WithField("poll_id", id).Debug("skipping closed poll")
			continue
		}
		if err != nil {
			return all, err
		}
		all = append(all, votes...)
	}
	return all, nil
}

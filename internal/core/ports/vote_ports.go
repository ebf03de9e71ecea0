package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
)

type VoteInput struct {
	PollID   uuid.UUID
	ChoiceID uuid.UUID
	UserID   uuid.UUID
}

type VoteService interface {
	Vote(ctx context.Context, input VoteInput) (domain.PollStatus, error)
	VoteRandomly(ctx context.Context, pollID uuid.UUID) ([]domain.RandomVote, error)
	VoteRandomlyMany(ctx context.Context, pollIDs []uuid.UUID) ([]domain.RandomVote, error)
}

type ReconcileService interface {
	ReconcileOpenPolls(ctx context.Context) error
}

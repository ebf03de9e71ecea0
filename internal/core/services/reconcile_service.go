package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
	"golang.org/x/sync/errgroup"
)

type reconcileService struct {
	polls     ports.PollRepository
	lifecycle ports.LifecycleService
	workers   int
	log       *logrus.Entry
}

func NewReconcileService(polls ports.PollRepository, lifecycle ports.LifecycleService, workers int) ports.ReconcileService {
	if workers < 1 {
		workers = 1
	}
	return &reconcileService{
		polls:     polls,
		lifecycle: lifecycle,
		workers:   workers,
		log:       logging.For("reconcile"),
	}
}

// ReconcileOpenPolls registers users created since each open poll was
// published and closes polls that already reached full turnout.
func (s *reconcileService) ReconcileOpenPolls(ctx context.Context) error {
	polls, err := s.polls.ListOpen(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch open polls")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, poll := range polls {
		g.Go(func() error {
			created, err := s.lifecycle.RegisterVoters(ctx, poll.ID)
			if err != nil {
				return errors.Wrapf(err, "failed to register voters of poll %s", poll.ID)
			}
			open, err := s.lifecycle.RecomputeStatus(ctx, poll.ID)
			if err != nil {
				return errors.Wrapf(err, "failed to recompute poll %s", poll.ID)
			}
			s.log.WithFields(logrus.Fields{
				"poll_id":    poll.ID,
				"new_voters": len(created),
				"open":       open,
			}).Debug("poll reconciled")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.log.WithField("polls", len(polls)).Info("open polls reconciled")
	return nil
}

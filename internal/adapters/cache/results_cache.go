// Package cache keeps the ranked results of closed polls in memory.
package cache

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type resultsCache struct {
	entries *lru.Cache[uuid.UUID, *domain.Results]
}

func NewResultsCache(size int) (ports.ResultsCache, error) {
	entries, err := lru.New[uuid.UUID, *domain.Results](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create results cache")
	}
	return &resultsCache{entries: entries}, nil
}

func (c *resultsCache) Get(pollID uuid.UUID) (*domain.Results, bool) {
	return c.entries.Get(pollID)
}

func (c *resultsCache) Set(pollID uuid.UUID, results *domain.Results) {
	c.entries.Add(pollID, results)
}

func (c *resultsCache) Invalidate(pollID uuid.UUID) {
	c.entries.Remove(pollID)
}

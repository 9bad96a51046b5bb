// Package tracker defines the boundary between issue trackers and the cycle
// time core: providers fetch raw issue histories, the loader classifies and
// aggregates them.
package tracker

import (
	"context"
	"errors"

	"github.com/danielolaszy/kanban/internal/cache"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/pkg/models"
)

// ErrProjectNotFound is returned by providers for unknown projects or boards.
var ErrProjectNotFound = errors.New("project not found")

// Provider fetches the issues resolved within a range, with their change logs.
type Provider interface {
	Name() string
	FetchIssues(ctx context.Context, project string, rng models.Range) ([]models.RawIssue, error)
}

// Cache stores fetched issues per tracker, project and range.
type Cache interface {
	Get(ctx context.Context, key cache.Key) ([]models.RawIssue, bool, error)
	Put(ctx context.Context, key cache.Key, issues []models.RawIssue) error
}

// Cached serves fetches from a cache before falling back to the provider.
type Cached struct {
	provider Provider
	cache    Cache
}

// WithCache wraps a provider with a cache.
func WithCache(provider Provider, c Cache) *Cached {
	return &Cached{provider: provider, cache: c}
}

// Name returns the wrapped provider's name.
func (c *Cached) Name() string {
	return c.provider.Name()
}

// FetchIssues returns cached issues when a fresh entry exists. Cache errors
// never fail a fetch.
func (c *Cached) FetchIssues(ctx context.Context, project string, rng models.Range) ([]models.RawIssue, error) {
	key := cache.Key{Tracker: c.provider.Name(), Project: project, Range: rng}

	issues, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		logging.Warn("cache read failed, fetching from tracker", "key", key.String(), "error", err)
	case ok:
		logging.Debug("cache hit", "key", key.String(), "issues", len(issues))
		return issues, nil
	default:
		logging.Debug("cache miss", "key", key.String())
	}

	issues, err = c.provider.FetchIssues(ctx, project, rng)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, key, issues); err != nil {
		logging.Warn("cache write failed", "key", key.String(), "error", err)
	}
	return issues, nil
}

package repositories

import (
	"context"
	"time"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
)

type stateReader interface {
	GetTier(ctx context.Context, userID string) (models.Tier, error)
	IsBrakeEngaged(ctx context.Context, userID string) (bool, error)
}

// CachedStates caches tier lookups briefly. Brake reads are deliberately
// never cached: the brake must be observed within its latency bound, so every
// check goes to storage.
type CachedStates struct {
	repo  stateReader
	cache *gocache.Cache
}

func NewCachedStates(repo stateReader) *CachedStates {
	return &CachedStates{repo: repo, cache: gocache.New(15*time.Second, time.Minute)}
}

func (c *CachedStates) GetTier(ctx context.Context, userID string) (models.Tier, error) {
	if value, found := c.cache.Get(userID); found {
		return value.(models.Tier), nil
	}

	tier, err := c.repo.GetTier(ctx, userID)
	if err != nil {
		return tier, err
	}

	if cacheErr := c.cache.Add(userID, tier, gocache.DefaultExpiration); cacheErr != nil {
		return tier, nil
	}
	return tier, nil
}

func (c *CachedStates) IsBrakeEngaged(ctx context.Context, userID string) (bool, error) {
	return c.repo.IsBrakeEngaged(ctx, userID)
}

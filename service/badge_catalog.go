package service

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"pyquest/models"
)

const catalogCacheKey = "badges:all"

// cachedBadges is one cached read of the catalog
type cachedBadges struct {
	badges    []*models.Badge
	timestamp time.Time
}

// BadgeCatalog caches the static badge catalog with a TTL.
// Admin writes call Invalidate so changes show up before expiry.
type BadgeCatalog struct {
	repo   BadgeRepository
	cache  *lru.Cache
	expiry time.Duration
	now    func() time.Time
}

// NewBadgeCatalog creates a catalog cache over repo
func NewBadgeCatalog(repo BadgeRepository, size int, expiry time.Duration) (*BadgeCatalog, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create badge cache: %w", err)
	}
	return &BadgeCatalog{
		repo:   repo,
		cache:  cache,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Badges returns the full catalog, reading through to the repository on a miss
func (c *BadgeCatalog) Badges(ctx context.Context) ([]*models.Badge, error) {
	if cached, ok := c.cache.Get(catalogCacheKey); ok {
		if entry, ok := cached.(cachedBadges); ok && c.fresh(entry.timestamp) {
			return entry.badges, nil
		}
	}

	badges, err := c.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge catalog: %w", err)
	}

	c.cache.Add(catalogCacheKey, cachedBadges{
		badges:    badges,
		timestamp: c.now(),
	})
	for _, badge := range badges {
		c.cache.Add(badgeCacheKey(badge.ID), cachedBadges{
			badges:    []*models.Badge{badge},
			timestamp: c.now(),
		})
	}

	log.WithField("badgeCount", len(badges)).Debug("Loaded badge catalog")
	return badges, nil
}

// Badge returns one catalog entry, or nil when no such badge exists
func (c *BadgeCatalog) Badge(ctx context.Context, badgeID string) (*models.Badge, error) {
	key := badgeCacheKey(badgeID)
	if cached, ok := c.cache.Get(key); ok {
		if entry, ok := cached.(cachedBadges); ok && c.fresh(entry.timestamp) && len(entry.badges) == 1 {
			return entry.badges[0], nil
		}
	}

	badge, err := c.repo.GetByID(ctx, badgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge %s: %w", badgeID, err)
	}
	if badge == nil {
		return nil, nil
	}

	c.cache.Add(key, cachedBadges{
		badges:    []*models.Badge{badge},
		timestamp: c.now(),
	})
	return badge, nil
}

// Invalidate drops every cached entry
func (c *BadgeCatalog) Invalidate() {
	c.cache.Purge()
	log.Info("Badge catalog cache invalidated")
}

func (c *BadgeCatalog) fresh(ts time.Time) bool {
	return c.expiry <= 0 || c.now().Sub(ts) < c.expiry
}

func badgeCacheKey(badgeID string) string {
	return "badge:" + badgeID
}

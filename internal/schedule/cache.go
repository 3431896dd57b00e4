package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedRepository keeps recent (specialist, specialty) lookups in an
// expiring LRU. Writes through this repository invalidate their entry;
// writes made by other processes become visible after ttl.
type CachedRepository struct {
	Repository
	cache *expirable.LRU[string, WeeklySchedule]
}

func NewCachedRepository(inner Repository, size int, ttl time.Duration) *CachedRepository {
	if size <= 0 {
		size = 128
	}
	return &CachedRepository{
		Repository: inner,
		cache:      expirable.NewLRU[string, WeeklySchedule](size, nil, ttl),
	}
}

func cacheKey(specialistID uuid.UUID, specialty string) string {
	return specialistID.String() + "|" + specialty
}

func (c *CachedRepository) GetBySpecialty(ctx context.Context, specialistID uuid.UUID, specialty string) (*WeeklySchedule, error) {
	key := cacheKey(specialistID, specialty)
	if s, ok := c.cache.Get(key); ok {
		return &s, nil
	}

	s, err := c.Repository.GetBySpecialty(ctx, specialistID, specialty)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *s)
	return s, nil
}

func (c *CachedRepository) Create(ctx context.Context, s WeeklySchedule) (*WeeklySchedule, error) {
	c.cache.Remove(cacheKey(s.SpecialistID, s.Specialty))
	return c.Repository.Create(ctx, s)
}

func (c *CachedRepository) Update(ctx context.Context, s WeeklySchedule) (*WeeklySchedule, error) {
	c.cache.Remove(cacheKey(s.SpecialistID, s.Specialty))
	updated, err := c.Repository.Update(ctx, s)
	if err == nil {
		c.cache.Remove(cacheKey(updated.SpecialistID, updated.Specialty))
	}
	return updated, err
}

// Delete only knows the id, so the whole cache is dropped.
func (c *CachedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := c.Repository.Delete(ctx, id)
	c.cache.Purge()
	return err
}

func (c *CachedRepository) Len() int {
	return c.cache.Len()
}

package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CategoryLoader fetches the category list from its source (trivia API or
// local question bank).
type CategoryLoader interface {
	LoadCategories(ctx context.Context) (map[int]string, error)
}

// CategoryRepository caches the category list with a TTL so that the trivia
// API is not asked on every lobby render.
type CategoryRepository struct {
	loader CategoryLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    map[int]string
	expiresAt time.Time
}

func NewCategoryRepository(loader CategoryLoader, ttl time.Duration) *CategoryRepository {
	return &CategoryRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CategoryRepository) GetCategories(ctx context.Context) (map[int]string, error) {
	if categories, ok := r.fresh(r.clock()); ok {
		return categories, nil
	}

	result, err, _ := r.sf.Do("categories", func() (interface{}, error) {
		now := r.clock()
		if categories, ok := r.fresh(now); ok {
			return categories, nil
		}

		categories, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = categories
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return copyCategories(result.(map[int]string)), nil
}

// Invalidate drops the cached list.
func (r *CategoryRepository) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *CategoryRepository) fresh(now time.Time) (map[int]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached != nil && r.expiresAt.After(now) {
		return copyCategories(r.cached), true
	}
	return nil, false
}

func (r *CategoryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func copyCategories(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for id, name := range in {
		out[id] = name
	}
	return out
}

package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CategoryLoader fetches the category list from its source.
type CategoryLoader interface {
	LoadCategories(ctx context.Context) (map[int]string, error)
}

// CategoryRepository caches the category list in a Redis hash and falls back
// to a loader on cache miss.
// Categories are stored as: HSET trivia:categories {id} {name}
type CategoryRepository struct {
	client *redis.Client
	loader CategoryLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const categoriesKey = "trivia:categories"

func NewCategoryRepository(client *redis.Client, loader CategoryLoader, ttl time.Duration) *CategoryRepository {
	return &CategoryRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CategoryRepository) GetCategories(ctx context.Context) (map[int]string, error) {
	cached, err := r.client.HGetAll(ctx, categoriesKey).Result()
	if err == nil && len(cached) > 0 {
		return fromHash(cached), nil
	}

	result, err, _ := r.sf.Do(categoriesKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, categoriesKey).Result()
		if err == nil && len(cached) > 0 {
			return fromHash(cached), nil
		}

		categories, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		if len(categories) == 0 {
			return categories, nil
		}

		fields := make(map[string]interface{}, len(categories))
		for id, name := range categories {
			fields[strconv.Itoa(id)] = name
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, categoriesKey)
		pipe.HSet(ctx, categoriesKey, fields)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, categoriesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int]string), nil
}

// Invalidate drops the cached hash.
func (r *CategoryRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, categoriesKey).Err()
}

func fromHash(cached map[string]string) map[int]string {
	categories := make(map[int]string, len(cached))
	for field, name := range cached {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		categories[id] = name
	}
	return categories
}

func (r *CategoryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/domain"
)

const versionKey = "quiz:results:version"

// CachedResultStore caches the leaderboard and global stats in Redis.
// Every successful Create bumps a version counter that is part of each cache
// key, so older entries are never read again and simply expire.
// Redis faults fall through to the wrapped store.
type CachedResultStore struct {
	app.ResultStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCachedResultStore(client *redis.Client, store app.ResultStore, ttl time.Duration) *CachedResultStore {
	return &CachedResultStore{
		ResultStore: store,
		client:      client,
		ttl:         ttl,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedResultStore) Create(ctx context.Context, result domain.QuizResult) (int64, error) {
	id, err := c.ResultStore.Create(ctx, result)
	if err != nil {
		return 0, err
	}
	_ = c.client.Incr(ctx, versionKey).Err()
	return id, nil
}

func (c *CachedResultStore) AggregateGlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	return cached(ctx, c, "stats", c.ResultStore.AggregateGlobalStats)
}

func (c *CachedResultStore) ListTopPerformers(ctx context.Context, limit int) ([]domain.RankedResult, error) {
	return cached(ctx, c, "top:"+strconv.Itoa(limit), func(ctx context.Context) ([]domain.RankedResult, error) {
		return c.ResultStore.ListTopPerformers(ctx, limit)
	})
}

func cached[T any](ctx context.Context, c *CachedResultStore, name string, load func(context.Context) (T, error)) (T, error) {
	key := c.key(ctx, name)
	if v, ok := readJSON[T](ctx, c.client, key); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if v, ok := readJSON[T](ctx, c.client, key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if raw, err := json.Marshal(v); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func readJSON[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var v T
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func (c *CachedResultStore) key(ctx context.Context, name string) string {
	version, err := c.client.Get(ctx, versionKey).Result()
	if err != nil {
		version = "0"
	}
	return "quiz:results:v" + version + ":" + name
}

func (c *CachedResultStore) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

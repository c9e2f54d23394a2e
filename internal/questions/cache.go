package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	cacheKeyPrefix  = "questions:"

	// loadTimeout bounds a shared upstream load, which outlives the caller
	// that started it.
	loadTimeout = 30 * time.Second
)

// CachedSource is a read-through Redis cache in front of another Source.
// Concurrent misses for the same key share one upstream call, and a caller
// that gives up does not cancel it for the others. Redis errors are logged and
// the upstream is used directly.
type CachedSource struct {
	next  Source
	rdb   goredis.UniversalClient
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

func NewCachedSource(next Source, rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With("component", "question_cache"),
	}
}

func (c *CachedSource) ListExams(ctx context.Context) ([]models.Exam, error) {
	return readThrough(ctx, c, cacheKeyPrefix+"exams", c.next.ListExams)
}

func (c *CachedSource) ListQuestions(ctx context.Context, year, limit, offset int) (*models.QuestionPage, error) {
	key := fmt.Sprintf("%spage:%d:%d:%d", cacheKeyPrefix, year, limit, offset)
	return readThrough(ctx, c, key, func(ctx context.Context) (*models.QuestionPage, error) {
		return c.next.ListQuestions(ctx, year, limit, offset)
	})
}

func (c *CachedSource) GetQuestion(ctx context.Context, year, index int) (*models.Question, error) {
	key := fmt.Sprintf("%sitem:%d:%d", cacheKeyPrefix, year, index)
	return readThrough(ctx, c, key, func(ctx context.Context) (*models.Question, error) {
		return c.next.GetQuestion(ctx, year, index)
	})
}

// Invalidate drops every cached question entry.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func readThrough[T any](ctx context.Context, c *CachedSource, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.log.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, goredis.Nil):
		c.log.Warn("cache read failed", "key", key, "error", err)
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		loaded, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if enc, err := json.Marshal(loaded); err == nil {
			if err := c.rdb.Set(loadCtx, key, enc, c.ttl).Err(); err != nil {
				c.log.Warn("cache write failed", "key", key, "error", err)
			}
		}
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.log.Debug("shared upstream load", "key", key)
		}
		return res.Val.(T), nil
	}
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/keyword"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	categoriesKey = "active_categories"
	keywordsKey   = "active_keywords"
	versionKey    = "keywords_version"

	defaultFetchTimeout = 10 * time.Second
)

var errStaleFill = errors.New("keyword lists invalidated during fill")

// CachedStore is a read-through redis cache in front of a keyword.Store.
// Redis being unavailable is never fatal: reads fall through to the wrapped
// store.
type CachedStore struct {
	next   keyword.Store
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.ZapLogger
	flight singleflight.Group

	// fetchTimeout bounds a shared backing read, which outlives the caller
	// that started it.
	fetchTimeout time.Duration
}

func NewCachedStore(next keyword.Store, client *redis.Client, prefix string, ttl time.Duration, log logger.ZapLogger) *CachedStore {
	return &CachedStore{
		next:   next,
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		logger: log,

		fetchTimeout: defaultFetchTimeout,
	}
}

func (s *CachedStore) ListActiveCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := s.load(ctx, categoriesKey, &out, func(ctx context.Context) (interface{}, error) {
		return s.next.ListActiveCategories(ctx)
	})
	return out, err
}

func (s *CachedStore) ListKeywordsForActiveCategories(ctx context.Context) ([]model.CategoryKeyword, error) {
	var out []model.CategoryKeyword
	err := s.load(ctx, keywordsKey, &out, func(ctx context.Context) (interface{}, error) {
		return s.next.ListKeywordsForActiveCategories(ctx)
	})
	return out, err
}

// Invalidate drops both cached lists. Called after any write that changes
// category activity or keyword registrations. Bumping the version first makes
// fills that read the backing store before this call skip their write.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.prefix+versionKey)
		pipe.Del(ctx, s.prefix+categoriesKey, s.prefix+keywordsKey)
		return nil
	})
	return err
}

func (s *CachedStore) load(ctx context.Context, key string, dest interface{}, fetch func(context.Context) (interface{}, error)) error {
	fullKey := s.prefix + key

	val, err := s.redis.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(val, dest); err == nil {
			return nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", fullKey))
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("redis read failed, using backing store", zap.String("key", fullKey), zap.Error(err))
	}

	// Concurrent misses for the same key share one backing read. The read is
	// detached from the caller's ctx; each caller still honours its own.
	ch := s.flight.DoChan(fullKey, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fill(fctx, fullKey, fetch)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

func (s *CachedStore) fill(ctx context.Context, fullKey string, fetch func(context.Context) (interface{}, error)) ([]byte, error) {
	version, versionErr := s.redis.Get(ctx, s.prefix+versionKey).Result()
	if versionErr != nil && !errors.Is(versionErr, redis.Nil) {
		s.logger.Warn("redis version read failed, result not cached", zap.String("key", fullKey), zap.Error(versionErr))
	}

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	if versionErr == nil || errors.Is(versionErr, redis.Nil) {
		if err := s.store(ctx, fullKey, data, version); err != nil && !errors.Is(err, errStaleFill) {
			s.logger.Warn("redis write failed", zap.String("key", fullKey), zap.Error(err))
		}
	}
	return data, nil
}

// store writes data only while the version still matches the one read before
// the backing fetch.
func (s *CachedStore) store(ctx context.Context, fullKey string, data []byte, version string) error {
	vk := s.prefix + versionKey
	return s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, data, s.ttl)
			return nil
		})
		return err
	}, vk)
}

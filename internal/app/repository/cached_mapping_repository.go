package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/QRHub/internal/app/model"
	"go.uber.org/zap"
)

const mappingCachePrefix = "qrhub:mapping:"

// CacheClient is the subset of the Redis API used by the mapping cache.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type cachedMappingRepository struct {
	MappingRepository

	cache  CacheClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedMappingRepository wraps inner with a read-through Redis cache for
// lookups by id. Cache faults are logged and never surface to callers.
func NewCachedMappingRepository(inner MappingRepository, cache CacheClient, ttl time.Duration, logger *zap.Logger) MappingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedMappingRepository{
		MappingRepository: inner,
		cache:             cache,
		ttl:               ttl,
		logger:            logger,
	}
}

func (r *cachedMappingRepository) GetByID(ctx context.Context, id string) (*model.Mapping, error) {
	key := mappingCachePrefix + id

	raw, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var mapping model.Mapping
		if jsonErr := json.Unmarshal(raw, &mapping); jsonErr == nil {
			return &mapping, nil
		}
		r.logger.Warn("discarding unreadable cached mapping", zap.String("id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("mapping cache read failed", zap.String("id", id), zap.Error(err))
	}

	mapping, err := r.MappingRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(mapping); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("mapping cache write failed", zap.String("id", id), zap.Error(err))
		}
	}
	return mapping, nil
}

func (r *cachedMappingRepository) Update(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error) {
	mapping, err := r.MappingRepository.Update(ctx, id, update)
	r.invalidate(ctx, id)
	return mapping, err
}

func (r *cachedMappingRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.MappingRepository.Delete(ctx, id)
	r.invalidate(ctx, id)
	return deleted, err
}

func (r *cachedMappingRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Del(ctx, mappingCachePrefix+id).Err(); err != nil {
		r.logger.Warn("mapping cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

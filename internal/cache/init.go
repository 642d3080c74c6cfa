package cache

import (
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/logger"
	redisClient "github.com/flexprice/installments/internal/redis"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	CacheTypeInMemory CacheType = "inmemory"
	CacheTypeRedis    CacheType = "redis"
)

// NewCache builds the configured cache. A nil redis client falls back to the in-memory cache.
func NewCache(cfg *config.Configuration, log *logger.Logger, client *redisClient.Client) Cache {
	if !cfg.Cache.Enabled {
		log.Infow("cache disabled")
		return NoopCache{}
	}

	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		if client != nil {
			log.Infow("cache initialized", "type", CacheTypeRedis)
			return NewRedisCache(client.GetClient(), log)
		}
		log.Warnw("redis cache requested without a redis client, using in-memory cache")
	}

	log.Infow("cache initialized", "type", CacheTypeInMemory)
	return NewInMemoryCache()
}

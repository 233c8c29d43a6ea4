package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Redis *redis.Client

// ConnectRedis returns nil when redis is not configured or unreachable; callers
// fall back to in-process locking and skip the catalog cache.
func ConnectRedis(url string) *redis.Client {
	if url == "" {
		log.Warn().Msg("⚠️  REDIS_URL not set, running without cache and with in-process locks")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Invalid REDIS_URL, running without cache")
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warn().Err(err).Msg("⚠️  Redis not available, running without cache")
		client.Close()
		return nil
	}

	log.Info().Msg("✅ Redis connected successfully")
	Redis = client
	return client
}

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/config"
)

// SetupCache connects to Redis database 0. An unreachable server is logged,
// not fatal: the checkout guard falls back to a local lock.
func SetupCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.CacheAddr(),
		Password: cfg.CachePassword,
		DB:       0,
	})

	if err := Ping(ctx, client); err != nil {
		log.Warn().Err(err).Str("addr", cfg.CacheAddr()).Msg("could not connect to cache")
	} else {
		log.Info().Str("addr", cfg.CacheAddr()).Msg("connected to cache")
	}
	return client
}

// Ping checks the connection with a short deadline.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

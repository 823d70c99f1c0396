package redis

import (
	"context"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.Redis, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	log.Info("Connected to redis", logger.StringField("addr", cfg.Addr), logger.IntField("db", cfg.DB))
	return rdb, nil
}

package repository

import (
	"context"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Repository struct {
	MarketData    contract.MarketDataClient
	Broker        contract.OrderClient
	Sentiment     contract.SentimentClient
	PositionStore contract.PositionStore
}

// NewRepository wires every external client. db and rdb may be nil unless
// the configured position store driver needs them.
func NewRepository(ctx context.Context, cfg *config.Config, log *logger.Logger, db *gorm.DB, rdb *redis.Client) (*Repository, error) {
	store, err := NewPositionStore(cfg, db, rdb)
	if err != nil {
		return nil, err
	}

	var classifier HeadlineClassifier
	if cfg.Gemini.Enabled() {
		classifier, err = NewGeminiAIRepository(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
	}

	return &Repository{
		MarketData:    NewMarketDataRepository(cfg, log),
		Broker:        NewBrokerRepository(cfg, log, NewFileTokenStore(cfg.Broker.TokenCacheFile)),
		Sentiment:     NewNewsRepository(cfg, log, classifier),
		PositionStore: store,
	}, nil
}

func NewPositionStore(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (contract.PositionStore, error) {
	switch cfg.PositionStore.Driver {
	case config.StoreDriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("position store %q requires a database connection", cfg.PositionStore.Driver)
		}
		return NewPostgresPositionStore(db), nil
	case config.StoreDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("position store %q requires a redis connection", cfg.PositionStore.Driver)
		}
		return NewRedisPositionStore(rdb, cfg.PositionStore.RedisKey), nil
	case config.StoreDriverFile, "":
		return NewFilePositionStore(cfg.PositionStore.FilePath), nil
	default:
		return nil, fmt.Errorf("unknown position store driver: %s", cfg.PositionStore.Driver)
	}
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/model"

	"github.com/redis/go-redis/v9"
)

type redisPositionStore struct {
	rdb *redis.Client
	key string
}

// NewRedisPositionStore keeps positions in one hash, field per symbol.
func NewRedisPositionStore(rdb *redis.Client, key string) contract.PositionStore {
	return &redisPositionStore{rdb: rdb, key: key}
}

func (s *redisPositionStore) Load(ctx context.Context) (map[string]*model.Position, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load positions %s: %w", s.key, err)
	}
	return decodePositionHash(raw)
}

func decodePositionHash(raw map[string]string) (map[string]*model.Position, error) {
	positions := make(map[string]*model.Position, len(raw))
	for symbol, data := range raw {
		var p model.Position
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("redis: decode position %s: %w", symbol, err)
		}
		p.Symbol = symbol
		positions[symbol] = &p
	}
	return positions, nil
}

func encodePositionHash(positions map[string]*model.Position) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(positions))
	for symbol, p := range positions {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("redis: encode position %s: %w", symbol, err)
		}
		fields[symbol] = string(data)
	}
	return fields, nil
}

// Save rewrites the hash inside MULTI/EXEC so readers never see a partial map.
func (s *redisPositionStore) Save(ctx context.Context, positions map[string]*model.Position) error {
	fields, err := encodePositionHash(positions)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save positions %s: %w", s.key, err)
	}
	return nil
}

func (s *redisPositionStore) Sync(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (s *redisPositionStore) Close() error {
	return nil
}

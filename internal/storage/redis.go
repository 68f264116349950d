package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	temp:save:{id}  -> JSON game snapshot
//	temp:config     -> JSON last-used options
type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func saveKey(id string) string { return fmt.Sprintf("temp:save:%s", id) }

const configKey = "temp:config"

func (r *redisStore) SaveState(ctx context.Context, id string, data []byte) error {
	return r.rdb.Set(ctx, saveKey(id), data, 0).Err()
}

func (r *redisStore) LoadState(ctx context.Context, id string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, saveKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *redisStore) SaveConfig(ctx context.Context, data []byte) error {
	return r.rdb.Set(ctx, configKey, data, 0).Err()
}

func (r *redisStore) LoadConfig(ctx context.Context) ([]byte, error) {
	data, err := r.rdb.Get(ctx, configKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *redisStore) Clear(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, "temp:save:*", 0).Iterator()
	keys := []string{configKey}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return r.rdb.Del(ctx, keys...).Err()
}

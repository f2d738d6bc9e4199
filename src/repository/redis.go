package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	client        *redis.Client
	maxValueBytes int
}

func NewRedisDB(addr, password string, db, maxValueBytes int) *RedisDB {
	return &RedisDB{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		maxValueBytes: maxValueBytes,
	}
}

func (r *RedisDB) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (r *RedisDB) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := checkQuota(value, r.maxValueBytes); err != nil {
		return err
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisDB) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisDB) Take(ctx context.Context, key string) (string, error) {
	val, err := r.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisDB) Close() error {
	return r.client.Close()
}

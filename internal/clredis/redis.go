package clredis

import (
	"context"
	"fmt"
	"time"

	"timetracker/internal/models/clconfig"

	"github.com/redis/go-redis/v9"
)

// NewClient ouvre la connexion redis, nil si aucune adresse n'est configurée
func NewClient(ctx context.Context, cfg clconfig.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.Db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connexion redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore stocke des valeurs courtes avec expiration sous un préfixe
type RedisStore struct {
	client     *redis.Client
	prefix     string
	expiration time.Duration
}

func New(client *redis.Client, prefix string, expiration time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		expiration: expiration,
	}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + ":" + id
}

func (r *RedisStore) Set(id string, value string) error {
	return r.client.Set(context.Background(), r.key(id), value, r.expiration).Err()
}

func (r *RedisStore) Get(id string, clear bool) string {
	ctx := context.Background()
	if clear {
		val, _ := r.client.GetDel(ctx, r.key(id)).Result()
		return val
	}
	val, _ := r.client.Get(ctx, r.key(id)).Result()
	return val
}

func (r *RedisStore) Verify(id, answer string, clear bool) bool {
	v := r.Get(id, clear)
	return v != "" && v == answer
}

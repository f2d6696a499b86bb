package cache

import (
	"context"
	"fmt"

	"ride-dispatch/internal/config"
	"ride-dispatch/internal/mylogger"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	cfg    *config.Redisconfig
	mylog  mylogger.Logger
	client *redis.Client
}

func New(ctx context.Context, cfg *config.Redisconfig, mylog mylogger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{
		cfg:    cfg,
		mylog:  mylog,
		client: client,
	}, nil
}

func (r *Redis) GetClient() *redis.Client {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) IsAlive(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

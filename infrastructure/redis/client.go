// Package redis builds a verified go-redis client.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	Address  string
	Password string
	DB       int
}

// ErrEmptyAddress is returned when no address is configured.
var ErrEmptyAddress = errors.New("redis address is required")

const pingTimeout = 5 * time.Second

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}

	return client, nil
}

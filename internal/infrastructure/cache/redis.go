// Package cache opens the redis client behind request idempotency.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultPingTimeout = 5 * time.Second

// OpenRedis connects to addr/db and fails unless the server answers a PING
// within pingTimeout (DefaultPingTimeout when <= 0).
func OpenRedis(ctx context.Context, addr string, db int, pingTimeout time.Duration) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis: empty address")
	}
	if pingTimeout <= 0 {
		pingTimeout = DefaultPingTimeout
	}
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s db=%d: %w", addr, db, err)
	}
	log.Printf("redis: connected addr=%s db=%d", addr, db)
	return r, nil
}

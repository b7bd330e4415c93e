package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen is the approximate length cap of the event stream, enforced
// via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// RedisConfig holds connection parameters for the Redis sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key and channel; defaults to "otc".
	Prefix string
}

// RedisSink publishes each event on a per-kind Pub/Sub channel, appends it
// to a capped stream, and keeps the latest reference price in a hash.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSink connects to Redis and verifies the connection with a ping.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newRedisSink(rdb, cfg.Prefix), nil
}

func newRedisSink(rdb *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "otc"
	}
	return &RedisSink{rdb: rdb, prefix: prefix}
}

// channel returns the Pub/Sub channel for kind, e.g. "otc:match".
func (s *RedisSink) channel(kind domain.EventKind) string {
	return s.prefix + ":" + strings.ToLower(string(kind))
}

func (s *RedisSink) stream() string {
	return s.prefix + ":events"
}

func (s *RedisSink) priceKey() string {
	return s.prefix + ":price:reference"
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, e domain.Event) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Publish(ctx, s.channel(e.Kind), body)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream(),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":    string(e.Kind),
			"payload": body,
		},
	})
	if q, ok := e.Payload.(domain.Quote); ok {
		pipe.HSet(ctx, s.priceKey(), map[string]interface{}{
			"price": strconv.FormatFloat(q.UnitPrice, 'f', -1, 64),
			"ts":    strconv.FormatInt(q.FetchedAt.UnixNano(), 10),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: write event %s: %w", e.Kind, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}

package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps each document as a plain string value without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	tracer trace.Tracer
}

// NewRedisStore wraps a connected client. prefix is prepended to every key.
func NewRedisStore(client *redis.Client, prefix string, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("kvstore: redis client required")
	}
	if tracer == nil {
		tracer = otel.Tracer("workshop.internal.kvstore.redis")
	}
	return &RedisStore{client: client, prefix: prefix, tracer: tracer}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "kvstore.get", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("kvstore: redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		span.RecordError(err)
		return true, fmt.Errorf("kvstore: redis decode %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	ctx, span := s.tracer.Start(ctx, "kvstore.set", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: redis encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: redis set %s: %w", key, err)
	}
	return nil
}

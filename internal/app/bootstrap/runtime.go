package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/workshop-concierge/cmd/mainconfig"
	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const redisKeyPrefix = "workshop:"

// Store backends accepted in STORE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects and pings, returning nil when the URL is empty or unreachable.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres pool init failed", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not available", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// StoreHandle is the selected document store and its teardown.
type StoreHandle struct {
	Store   kvstore.Store
	Backend string
	close   func()
}

func (h StoreHandle) Close() {
	if h.close != nil {
		h.close()
	}
}

// BuildStore selects the durable store named by cfg.StoreBackend. Any backend
// that cannot be reached degrades to kvstore.Unavailable, so the chat keeps
// working without extensions, review queues or the activity log.
func BuildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (StoreHandle, error) {
	if cfg == nil {
		return StoreHandle{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	unavailable := StoreHandle{Store: kvstore.Unavailable{}, Backend: BackendNone}
	switch cfg.StoreBackend {
	case BackendRedis, "":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return unavailable, nil
		}
		logger.Info("using redis store", "addr", cfg.RedisAddr)
		store := kvstore.NewRedisStore(client, redisKeyPrefix, otel.Tracer("workshop.internal.kvstore"))
		return StoreHandle{Store: store, Backend: BackendRedis, close: func() { _ = client.Close() }}, nil
	case BackendDynamoDB:
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("aws config unavailable; storage disabled", "error", err)
			return unavailable, nil
		}
		logger.Info("using dynamodb store", "table", cfg.DynamoDBTable)
		return StoreHandle{Store: kvstore.NewDynamoStore(mainconfig.NewDynamoDBClient(awsCfg, cfg), cfg.DynamoDBTable), Backend: BackendDynamoDB}, nil
	case BackendPostgres:
		pool := BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
		if pool == nil {
			return unavailable, nil
		}
		logger.Info("using postgres store")
		return StoreHandle{Store: kvstore.NewPostgresStore(pool), Backend: BackendPostgres, close: pool.Close}, nil
	case BackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return StoreHandle{Store: kvstore.NewMemoryStore(), Backend: BackendMemory}, nil
	case BackendNone:
		logger.Warn("storage disabled")
		return unavailable, nil
	default:
		return StoreHandle{}, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
	}
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key layout in Redis
const (
	keyPrefixReceipt = "uploader:receipt:"
	keySchemaVersion = "uploader:metadata:schema_version"

	// Sorted set of receipt ids scored by submission time, for listing
	keyReceiptIndex = "uploader:receipts:index"

	operationTimeout = 5 * time.Second
)

// RedisPersistence stores receipts in Redis so several uploader instances can share them.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IReceiptPersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "staging:" gives "staging:uploader:receipt:<id>"
	KeyPrefix string
}

func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}
	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis receipt persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) receiptKey(id string) string {
	return r.prefixKey(keyPrefixReceipt + id)
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, persistence.CurrentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != persistence.CurrentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, persistence.CurrentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) SaveReceipt(receipt *types.Receipt) error {
	if receipt == nil || receipt.ID == "" {
		return persistence.ErrInvalidReceipt
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalReceipt(receipt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.receiptKey(receipt.ID), data, 0)
	pipe.ZAdd(ctx, r.prefixKey(keyReceiptIndex), redis.Z{Score: float64(receipt.SubmittedAt), Member: receipt.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

func (r *RedisPersistence) LoadReceipt(id string) (*types.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.receiptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	return persistence.UnmarshalReceipt(data)
}

func (r *RedisPersistence) ListReceipts(limit int) ([]*types.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.ZRevRange(ctx, r.prefixKey(keyReceiptIndex), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt index: %w", err)
	}
	if len(ids) == 0 {
		return []*types.Receipt{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.receiptKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}

	receipts := make([]*types.Receipt, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.logger.Sugar().Warnw("Receipt index entry has no receipt", "id", ids[i])
			continue
		}
		receipt, err := persistence.UnmarshalReceipt([]byte(s))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	persistence.SortNewestFirst(receipts)
	return receipts, nil
}

func (r *RedisPersistence) DeleteReceipt(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.receiptKey(id))
	pipe.ZRem(ctx, r.prefixKey(keyReceiptIndex), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

// Close closes the Redis client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	r.logger.Sugar().Infow("Redis receipt persistence closed")
	return nil
}

func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hykang/chorus/types"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// RedisStore is a Redis-backed Store implementation. Suitable for
// distributed production deployments. Each conversation is a JSON
// document; appends run inside an optimistic WATCH transaction so
// concurrent writers on the same conversation serialize instead of
// clobbering each other.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "chorus:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "conv:",
	}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "chorus:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "conv:"}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

// Get returns the conversation with the given ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	var conv types.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Create persists a new conversation.
func (s *RedisStore) Create(ctx context.Context, conv *types.Conversation) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidInput
	}
	now := time.Now()
	cp := *conv
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}
	ok, err := s.client.SetNX(ctx, s.key(conv.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create conversation %s: %w", conv.ID, err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// AppendMessage appends one message to the conversation log.
func (s *RedisStore) AppendMessage(ctx context.Context, id string, msg types.StoredMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return s.update(ctx, id, func(conv *types.Conversation) {
		conv.Messages = append(conv.Messages, msg)
	})
}

// AppendConfigSnapshot appends one config snapshot.
func (s *RedisStore) AppendConfigSnapshot(ctx context.Context, id string, snap types.ConfigSnapshot) error {
	return s.update(ctx, id, func(conv *types.Conversation) {
		conv.ConfigHistory = append(conv.ConfigHistory, snap)
		conv.CurrentConfigVersion = snap.Version
	})
}

// Touch bumps UpdatedAt.
func (s *RedisStore) Touch(ctx context.Context, id string) error {
	return s.update(ctx, id, func(conv *types.Conversation) {})
}

// Delete removes the conversation.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// maxTxRetries bounds optimistic-transaction retries under contention.
const maxTxRetries = 5

// update applies fn to the stored document inside a WATCH transaction.
func (s *RedisStore) update(ctx context.Context, id string, fn func(*types.Conversation)) error {
	key := s.key(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var conv types.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return fmt.Errorf("decode conversation %s: %w", id, err)
		}

		fn(&conv)
		conv.UpdatedAt = time.Now()

		out, err := json.Marshal(&conv)
		if err != nil {
			return fmt.Errorf("encode conversation %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update conversation %s: transaction retries exhausted", id)
}

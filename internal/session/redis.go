package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskbot/pkg/logging"
)

const (
	defaultKeyPrefix = "taskbot:"
	defaultTTL       = 30 * 24 * time.Hour

	maxUpdateAttempts = 5
)

// RedisStore keeps records as JSON strings in Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store on client. A zero ttl selects thirty days;
// a negative ttl stores records without expiry.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl == 0 {
		ttl = defaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, prefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + "user:" + userID
}

func (s *RedisStore) conversationKey(conversationID string) string {
	return s.prefix + "conversation:" + conversationID
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, c getter, key string) ([]byte, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func (s *RedisStore) LoadUser(ctx context.Context, userID string) (*UserRecord, error) {
	if userID == "" {
		return nil, ErrEmptyKey
	}
	raw, err := s.get(ctx, s.client, s.userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user from redis: %w", err)
	}
	rec, err := decodeUser(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) SaveUser(ctx context.Context, userID string, rec *UserRecord) error {
	if userID == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := s.client.Set(ctx, s.userKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save user to redis: %w", err)
	}
	return nil
}

// UpdateUser runs fn inside an optimistic WATCH/MULTI transaction and
// retries when another writer got in between.
func (s *RedisStore) UpdateUser(ctx context.Context, userID string, fn func(*UserRecord) error) error {
	if userID == "" {
		return ErrEmptyKey
	}
	key := s.userKey(userID)

	txf := func(tx *redis.Tx) error {
		raw, err := s.get(ctx, tx, key)
		if err != nil {
			return fmt.Errorf("failed to get user from redis: %w", err)
		}
		rec, err := decodeUser(raw)
		if err != nil {
			return fmt.Errorf("failed to unmarshal user: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
		out, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		logging.Debug("Session", "Concurrent update of user=%s, retrying (attempt %d)", logging.Truncate(userID), attempt)
	}
	return fmt.Errorf("failed to update user after %d attempts: %w", maxUpdateAttempts, redis.TxFailedErr)
}

func (s *RedisStore) LoadConversation(ctx context.Context, conversationID string) (Data, error) {
	if conversationID == "" {
		return nil, ErrEmptyKey
	}
	raw, err := s.get(ctx, s.client, s.conversationKey(conversationID))
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation from redis: %w", err)
	}
	data, err := decodeData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return data, nil
}

func (s *RedisStore) SaveConversation(ctx context.Context, conversationID string, data Data) error {
	if conversationID == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := s.client.Set(ctx, s.conversationKey(conversationID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation to redis: %w", err)
	}
	return nil
}

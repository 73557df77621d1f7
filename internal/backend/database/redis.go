package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "visionassist:history:"

// RedisDatabase stores each session as a redis list of JSON records
type RedisDatabase struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDatabase connects using a redis:// URL. A positive ttl expires a
// session's list after that long without writes.
func NewRedisDatabase(connectionString string, ttl time.Duration) (*RedisDatabase, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return NewRedisDatabaseFromClient(redis.NewClient(opts), ttl), nil
}

func NewRedisDatabaseFromClient(client *redis.Client, ttl time.Duration) *RedisDatabase {
	return &RedisDatabase{client: client, ttl: ttl}
}

func (r *RedisDatabase) CreateDatabase() error {
	return r.client.Ping(context.Background()).Err()
}

func (r *RedisDatabase) DoesDatabaseExist() bool {
	return r.client.Ping(context.Background()).Err() == nil
}

func (r *RedisDatabase) Close() error {
	return r.client.Close()
}

func (r *RedisDatabase) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (r *RedisDatabase) AppendRecord(ctx context.Context, sessionID string, record *Record) (*Record, error) {
	stored, err := prepareRecord(sessionID, record)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	key := r.key(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored.clone(), nil
}

func (r *RedisDatabase) GetRecords(ctx context.Context, sessionID string) ([]*Record, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	values, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(values))
	for i, v := range values {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record at index %d: %w", i, err)
		}
		rec.SessionID = sessionID
		records = append(records, &rec)
	}
	return records, nil
}

// DeleteRecord replaces the element with a unique tombstone and removes it,
// since redis lists have no remove-by-index.
func (r *RedisDatabase) DeleteRecord(ctx context.Context, sessionID string, index int) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	key := r.key(sessionID)
	length, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return err
	}
	if index < 0 || int64(index) >= length {
		return ErrIndexOutOfRange
	}

	tombstone, err := generateID()
	if err != nil {
		return err
	}
	tombstone = "__deleted__:" + tombstone
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LSet(ctx, key, int64(index), tombstone)
		pipe.LRem(ctx, key, 1, tombstone)
		return nil
	})
	return err
}

func (r *RedisDatabase) ClearRecords(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

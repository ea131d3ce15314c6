package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements MessageStore using Redis.
// Suitable when history should survive restarts without a cloud
// dependency.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all history keys (default: "voxgo:history:").
	Prefix string
	// TTL is the per-session history expiry (0 = never expire).
	TTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisStore creates a new Redis message store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "voxgo:history:"
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "voxgo:history:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key helpers
func (s *RedisStore) messagesKey(sessionID string) string {
	return s.prefix + "msgs:" + sessionID
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "sessions"
}

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStorageClosed
	}
	return nil
}

// SaveMessage appends a message and upserts session metadata.
func (s *RedisStore) SaveMessage(ctx context.Context, sessionID, role, content string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	now := time.Now().UTC()
	msg := StoredMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	msgData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	// created_at is set-once; load existing metadata first.
	info := SessionInfo{SessionID: sessionID, CreatedAt: now}
	existing, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(existing, &info); unmarshalErr != nil {
			return fmt.Errorf("unmarshal session metadata: %w", unmarshalErr)
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get session metadata: %w", err)
	}
	info.LastActivity = now

	infoData, err := json.Marshal(&info)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.messagesKey(sessionID), msgData)
	pipe.Set(ctx, s.sessionKey(sessionID), infoData, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(now.UnixNano()),
		Member: sessionID,
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.messagesKey(sessionID), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// History returns up to limit messages in chronological order.
func (s *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	data, err := s.client.LRange(ctx, s.messagesKey(sessionID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]StoredMessage, 0, len(data))
	for _, d := range data {
		var msg StoredMessage
		if err := json.Unmarshal([]byte(d), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ListSessions returns sessions ordered by last activity, most recent first.
func (s *RedisStore) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSessionsLimit
	}

	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Metadata expired; drop the stale index entry.
				s.client.ZRem(ctx, s.indexKey(), id)
				continue
			}
			return nil, fmt.Errorf("get session metadata: %w", err)
		}
		var info SessionInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("unmarshal session metadata: %w", err)
		}
		sessions = append(sessions, info)
	}
	return sessions, nil
}

// Stats returns message counts for a session.
func (s *RedisStore) Stats(ctx context.Context, sessionID string) (Stats, error) {
	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}

	data, err := s.client.LRange(ctx, s.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("load messages: %w", err)
	}

	var stats Stats
	for _, d := range data {
		var msg StoredMessage
		if err := json.Unmarshal([]byte(d), &msg); err != nil {
			return Stats{}, fmt.Errorf("unmarshal message: %w", err)
		}
		stats.TotalMessages++
		switch msg.Role {
		case "user":
			stats.UserMessages++
		case "assistant":
			stats.AssistantMessages++
		}
	}
	return stats, nil
}

// DeleteSession removes a session's messages and metadata.
func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.messagesKey(sessionID))
	pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

// Close releases resources held by the store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

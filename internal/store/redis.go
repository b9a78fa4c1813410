package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/helpdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// RedisStore implements Repository on Redis. Conversation keys carry a TTL, so Redis
// expires idle bindings itself and GetExpiredConversations has nothing to report.
type RedisStore struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	closer func() error
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	store := NewRedisWithClient(client, ttl)
	store.closer = client.Close
	return store, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func userKey(userID string) string {
	return fmt.Sprintf("helpdesk:user:%s", userID)
}

func conversationKey(userID, tabID string) string {
	return fmt.Sprintf("helpdesk:conversation:%s:%s", userID, tabID)
}

type redisUser struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	LastSeenAt int64  `json:"last_seen_at"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

type redisConversation struct {
	UserID          string `json:"user_id"`
	TabID           string `json:"tab_id"`
	RemoteSessionID string `json:"remote_session_id"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// GetUser retrieves a user by their user ID.
func (s *RedisStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	raw, err := s.rdb.Get(ctx, userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u redisUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &domain.User{
		UserID:     u.UserID,
		Username:   u.Username,
		LastSeenAt: time.Unix(u.LastSeenAt, 0),
		CreatedAt:  time.Unix(u.CreatedAt, 0),
		UpdatedAt:  time.Unix(u.UpdatedAt, 0),
	}, nil
}

// UpsertUser creates or updates a user record.
func (s *RedisStore) UpsertUser(ctx context.Context, user *domain.User) error {
	b, err := json.Marshal(redisUser{
		UserID:     user.UserID,
		Username:   user.Username,
		LastSeenAt: user.LastSeenAt.Unix(),
		CreatedAt:  user.CreatedAt.Unix(),
		UpdatedAt:  user.UpdatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.rdb.Set(ctx, userKey(user.UserID), b, 0).Err(); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	return nil
}

// GetConversation retrieves the binding for a user's tab.
func (s *RedisStore) GetConversation(ctx context.Context, userID, tabID string) (*domain.Conversation, error) {
	raw, err := s.rdb.Get(ctx, conversationKey(userID, tabID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var c redisConversation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return &domain.Conversation{
		UserID:          c.UserID,
		TabID:           c.TabID,
		RemoteSessionID: c.RemoteSessionID,
		CreatedAt:       time.Unix(c.CreatedAt, 0),
		UpdatedAt:       time.Unix(c.UpdatedAt, 0),
	}, nil
}

// UpsertConversation stores the binding and extends its TTL on touch.
func (s *RedisStore) UpsertConversation(ctx context.Context, conv *domain.Conversation) error {
	now := time.Now()
	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	b, err := json.Marshal(redisConversation{
		UserID:          conv.UserID,
		TabID:           conv.TabID,
		RemoteSessionID: conv.RemoteSessionID,
		CreatedAt:       createdAt.Unix(),
		UpdatedAt:       now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	key := conversationKey(conv.UserID, conv.TabID)
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		slog.Error("failed to store conversation in redis", "key", key, "error", err)
		return fmt.Errorf("set conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a binding.
func (s *RedisStore) DeleteConversation(ctx context.Context, userID, tabID string) error {
	if err := s.rdb.Del(ctx, conversationKey(userID, tabID)).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// GetExpiredConversations always returns nothing: Redis expires bindings by TTL.
func (s *RedisStore) GetExpiredConversations(_ context.Context, _ time.Duration) ([]*domain.Conversation, error) {
	return nil, nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client when this store owns it.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

var _ Repository = (*RedisStore)(nil)

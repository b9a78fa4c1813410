// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/domain"
)

// Repository persists anonymous users and conversation bindings.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// GetConversation retrieves the binding for a user's tab. Returns nil, nil when absent.
	GetConversation(ctx context.Context, userID, tabID string) (*domain.Conversation, error)

	// UpsertConversation creates or updates a binding and refreshes its updated_at.
	UpsertConversation(ctx context.Context, conv *domain.Conversation) error

	// DeleteConversation removes a binding. Deleting a missing binding is not an error.
	DeleteConversation(ctx context.Context, userID, tabID string) error

	// GetExpiredConversations lists bindings idle for longer than ttl.
	GetExpiredConversations(ctx context.Context, ttl time.Duration) ([]*domain.Conversation, error)

	// Ping verifies connectivity and returns an error if the backend is unreachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// New opens the backend selected by cfg.
func New(cfg config.StoreConfig, ttl time.Duration) (Repository, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		s, err := NewRedis(RedisConfig{
			URL:          cfg.RedisURL,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			DialTimeout:  cfg.DialTimeout,
		}, ttl)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

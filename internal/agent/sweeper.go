package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/helpdesk/internal/domain"
)

// ExpiredConversationStore lists and removes conversation bindings past their TTL.
type ExpiredConversationStore interface {
	GetExpiredConversations(ctx context.Context, ttl time.Duration) ([]*domain.Conversation, error)
	DeleteConversation(ctx context.Context, userID, tabID string) error
}

// Sweeper expires idle conversations: stored bindings, in-memory clients and
// their WebSocket connections.
type Sweeper struct {
	repo     ExpiredConversationStore
	svc      *Service
	conns    *ConnManager
	ttl      time.Duration
	interval time.Duration
}

// NewSweeper creates a sweeper. conns may be nil.
func NewSweeper(repo ExpiredConversationStore, svc *Service, conns *ConnManager, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, svc: svc, conns: conns, ttl: ttl, interval: interval}
}

// Start runs the sweeper until ctx is done. The returned channel is closed once the
// goroutine has exited.
func (s *Sweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Conversation sweeper started", "interval", s.interval, "ttl", s.ttl)

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				slog.Info("Conversation sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

// Sweep runs one pass and returns how many conversations it expired.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cleaned := 0

	expired, err := s.repo.GetExpiredConversations(ctx, s.ttl)
	if err != nil {
		slog.Error("Sweeper failed to list expired conversations", "error", err)
	}
	for _, conv := range expired {
		s.release(conv.UserID, conv.TabID)
		if err := s.repo.DeleteConversation(ctx, conv.UserID, conv.TabID); err != nil {
			slog.Warn("Sweeper failed to delete conversation",
				"error", err,
				"user_id", conv.UserID,
				"session_id", conv.TabID)
			continue
		}
		cleaned++
	}

	for _, conv := range s.svc.EvictIdle(s.ttl) {
		if s.conns != nil {
			s.conns.Close(conv.UserID, conv.TabID)
		}
		cleaned++
	}

	if cleaned > 0 {
		slog.Info("Conversation sweep completed", "cleaned", cleaned)
	}
	return cleaned
}

func (s *Sweeper) release(userID, tabID string) {
	s.svc.Evict(userID, tabID)
	if s.conns != nil {
		s.conns.Close(userID, tabID)
	}
}

package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/domain"
)

// ConversationStore persists the remote session id of each conversation.
type ConversationStore interface {
	GetConversation(ctx context.Context, userID, tabID string) (*domain.Conversation, error)
	UpsertConversation(ctx context.Context, conv *domain.Conversation) error
	DeleteConversation(ctx context.Context, userID, tabID string) error
}

// Service keeps one Client per conversation. All clients share a TokenProvider
// because the bearer token belongs to the API key, not to a conversation.
type Service struct {
	cfg    config.AgentConfig
	tokens *TokenProvider
	repo   ConversationStore
	opts   []Option
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

type conversation struct {
	userID   string
	tabID    string
	client   *Client
	lastUsed time.Time

	storeMu sync.Mutex // orders persist against Reset
}

// NewService creates a service. repo may be nil, in which case remote session ids
// live only in memory.
func NewService(cfg config.AgentConfig, repo ConversationStore, opts ...Option) *Service {
	o := buildOptions(opts)
	tokens := o.tokens
	if tokens == nil {
		tokens = NewTokenProvider(cfg, opts...)
	}
	return &Service{
		cfg:           cfg,
		tokens:        tokens,
		repo:          repo,
		opts:          append(opts[:len(opts):len(opts)], WithTokenProvider(tokens)),
		logger:        o.logger,
		now:           o.now,
		conversations: make(map[string]*conversation),
	}
}

// IsConfigured reports whether API key, agent id and host are all present.
func (s *Service) IsConfigured() bool {
	return s.cfg.APIKey != "" && s.cfg.AgentID != "" && s.cfg.HostURL != ""
}

// Send delivers text on the tab's conversation. A remote session id assigned or
// changed by the reply is persisted so the conversation survives a restart, unless
// the conversation was reset while the reply was in flight.
func (s *Service) Send(ctx context.Context, userID, tabID, text string) (string, error) {
	conv := s.conversation(ctx, userID, tabID)

	reply, gen, err := conv.client.send(ctx, text)
	if err != nil {
		s.logger.Warn("agent message failed",
			"user_id", userID,
			"tab_id", tabID,
			"error", err,
		)
		return "", err
	}

	conv.storeMu.Lock()
	defer conv.storeMu.Unlock()
	if !conv.client.current(gen) {
		s.logger.Debug("conversation reset during turn, not persisting", "user_id", userID, "tab_id", tabID)
		return reply, nil
	}
	s.persist(ctx, userID, tabID, conv.client.SessionID())
	return reply, nil
}

// Reset clears the tab's remote session id, in memory and in storage. The shared
// bearer token is kept.
func (s *Service) Reset(ctx context.Context, userID, tabID string) error {
	key := domain.ConversationKey(userID, tabID)
	s.mu.Lock()
	conv, ok := s.conversations[key]
	if ok {
		conv.lastUsed = s.now()
	}
	s.mu.Unlock()

	if ok {
		conv.storeMu.Lock()
		defer conv.storeMu.Unlock()
		conv.client.ResetSession()
	}

	if s.repo == nil {
		return nil
	}
	return s.repo.DeleteConversation(ctx, userID, tabID)
}

// ClearToken forces the next message on any conversation to re-authenticate.
func (s *Service) ClearToken() {
	s.tokens.Clear()
}

// Status reports the tab's conversation state and the token cache.
func (s *Service) Status(userID, tabID string) Status {
	st := Status{
		Configured:  s.IsConfigured(),
		TokenCached: s.tokens.Cached(),
	}
	if exp, ok := s.tokens.ExpiresAt(); ok {
		st.TokenExpiresAt = exp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[domain.ConversationKey(userID, tabID)]; ok {
		st.SessionActive = conv.client.SessionID() != ""
	}
	return st
}

// Evict drops the in-memory client for a tab. Storage is left alone.
func (s *Service) Evict(userID, tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, domain.ConversationKey(userID, tabID))
}

// EvictIdle drops clients unused for longer than ttl and returns their keys.
func (s *Service) EvictIdle(ttl time.Duration) []domain.Conversation {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []domain.Conversation
	for key, conv := range s.conversations {
		if conv.lastUsed.Before(cutoff) {
			evicted = append(evicted, domain.Conversation{UserID: conv.userID, TabID: conv.tabID})
			delete(s.conversations, key)
		}
	}
	return evicted
}

// Len returns the number of live clients.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// conversation returns the tab's client, creating it on first use. A new client
// resumes the remote session id found in storage, if any.
func (s *Service) conversation(ctx context.Context, userID, tabID string) *conversation {
	key := domain.ConversationKey(userID, tabID)

	s.mu.Lock()
	if conv, ok := s.conversations[key]; ok {
		conv.lastUsed = s.now()
		s.mu.Unlock()
		return conv
	}
	s.mu.Unlock()

	sessionID := s.restore(ctx, userID, tabID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[key]; ok {
		conv.lastUsed = s.now()
		return conv
	}
	conv := &conversation{
		userID:   userID,
		tabID:    tabID,
		client:   NewClient(s.cfg, append(s.opts[:len(s.opts):len(s.opts)], WithSessionID(sessionID))...),
		lastUsed: s.now(),
	}
	s.conversations[key] = conv
	return conv
}

func (s *Service) restore(ctx context.Context, userID, tabID string) string {
	if s.repo == nil {
		return ""
	}
	stored, err := s.repo.GetConversation(ctx, userID, tabID)
	if err != nil {
		s.logger.Warn("failed to load conversation", "user_id", userID, "tab_id", tabID, "error", err)
		return ""
	}
	if stored == nil {
		return ""
	}
	return stored.RemoteSessionID
}

func (s *Service) persist(ctx context.Context, userID, tabID, sessionID string) {
	if s.repo == nil {
		return
	}
	err := s.repo.UpsertConversation(ctx, &domain.Conversation{
		UserID:          userID,
		TabID:           tabID,
		RemoteSessionID: sessionID,
	})
	if err != nil {
		s.logger.Warn("failed to persist conversation", "user_id", userID, "tab_id", tabID, "error", err)
	}
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/errx"
	"golang.org/x/sync/singleflight"
)

var errMissingAccessToken = errors.New("response has no access_token")

// TokenProvider exchanges the configured API key for a bearer token and caches it
// until TokenExpiryBuffer before it expires. Concurrent callers that miss the cache
// share a single exchange.
type TokenProvider struct {
	apiKey     string
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	generation  uint64 // bumped by Clear
}

// NewTokenProvider creates a provider for cfg's API key.
func NewTokenProvider(cfg config.AgentConfig, opts ...Option) *TokenProvider {
	o := buildOptions(opts)
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenProvider{
		apiKey:     cfg.APIKey,
		tokenURL:   tokenURL,
		httpClient: o.httpClient,
		logger:     o.logger,
		now:        o.now,
	}
}

// Token returns a cached token when it is still outside the expiry buffer, and
// otherwise fetches a new one. A failed fetch leaves the cache as it was.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if p.apiKey == "" {
		return "", errx.Configuration("API key not configured")
	}
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	// The exchange outlives any single caller so one cancellation does not fail the
	// others waiting on it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("token", func() (any, error) {
		if tok, ok := p.cached(); ok {
			return tok, nil
		}
		return p.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Clear drops the cached token so the next Token call fetches a fresh one.
func (p *TokenProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = ""
	p.expiresAt = time.Time{}
	p.generation++
}

// ExpiresAt reports when the cached token expires, if one is cached.
func (p *TokenProvider) ExpiresAt() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessToken == "" {
		return time.Time{}, false
	}
	return p.expiresAt, true
}

// Cached reports whether a call to Token right now would skip the network.
func (p *TokenProvider) Cached() bool {
	_, ok := p.cached()
	return ok
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessToken == "" {
		return "", false
	}
	if !p.now().Before(p.expiresAt.Add(-TokenExpiryBuffer)) {
		return "", false
	}
	return p.accessToken, true
}

// fetch exchanges the API key. A Clear that lands while the exchange is in flight
// wins: the new token is returned to the waiting callers but not cached.
func (p *TokenProvider) fetch(ctx context.Context) (string, error) {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", GrantTypeAPIKey)
	form.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errx.TokenFetch(0, "", fmt.Errorf("build token request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("token request failed", "error", err)
		return "", errx.TokenFetch(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
	if err != nil {
		return "", errx.TokenFetch(resp.StatusCode, "", fmt.Errorf("read token response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Warn("token request rejected", "status", resp.StatusCode)
		return "", errx.TokenFetch(resp.StatusCode, string(body), nil)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", errx.TokenFetch(resp.StatusCode, string(body), fmt.Errorf("decode token response: %w", err))
	}
	if tr.AccessToken == "" {
		return "", errx.TokenFetch(resp.StatusCode, string(body), errMissingAccessToken)
	}

	expiresIn := defaultExpiresIn
	if tr.ExpiresIn != nil {
		expiresIn = min(*tr.ExpiresIn, maxExpiresIn)
	}
	expiresAt := p.now().Add(time.Duration(expiresIn * float64(time.Second)))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		p.logger.Debug("token cleared during fetch, not caching")
		return tr.AccessToken, nil
	}
	p.accessToken = tr.AccessToken
	p.expiresAt = expiresAt

	p.logger.Debug("bearer token refreshed", "expires_at", expiresAt)
	return tr.AccessToken, nil
}

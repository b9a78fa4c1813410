package agent

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/helpdesk/internal/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(remote *fakeRemote, clk *clock) *TokenProvider {
	return NewTokenProvider(testAgentConfig(), WithHTTPClient(remote.client()), WithClock(clk.Now))
}

func TestTokenFetchesWithAPIKeyGrant(t *testing.T) {
	remote := newFakeRemote()
	p := newTestProvider(remote, newClock())

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	require.Len(t, remote.tokenForms, 1)
	assert.True(t, formHas(remote.tokenForms[0], "grant_type=urn%3Aibm%3Aparams%3Aoauth%3Agrant-type%3Aapikey"), remote.tokenForms[0])
	assert.True(t, formHas(remote.tokenForms[0], "apikey=secret-key"), remote.tokenForms[0])
}

func TestTokenReusedOutsideBuffer(t *testing.T) {
	remote := newFakeRemote()
	clk := newClock()
	p := newTestProvider(remote, clk)
	ctx := context.Background()

	_, err := p.Token(ctx)
	require.NoError(t, err)

	clk.Advance(54 * time.Minute)
	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tokens, _ := remote.counts()
	assert.Equal(t, 1, tokens)
	assert.True(t, p.Cached())
}

func TestTokenRefetchedInsideBuffer(t *testing.T) {
	remote := newFakeRemote()
	clk := newClock()
	p := newTestProvider(remote, clk)
	ctx := context.Background()

	_, err := p.Token(ctx)
	require.NoError(t, err)

	// 56 minutes in, the token has 4 minutes left: inside the 5 minute buffer.
	clk.Advance(56 * time.Minute)
	assert.False(t, p.Cached())

	remote.mu.Lock()
	remote.tokenBody = `{"access_token":"tok-2","expires_in":3600}`
	remote.mu.Unlock()

	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)

	tokens, _ := remote.counts()
	assert.Equal(t, 2, tokens)
}

func TestTokenDefaultExpiry(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenBody = `{"access_token":"tok-1"}`
	clk := newClock()
	p := newTestProvider(remote, clk)

	_, err := p.Token(context.Background())
	require.NoError(t, err)

	exp, ok := p.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, clk.Now().Add(time.Hour), exp)
}

func TestTokenNonPositiveExpiryIsNotReused(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenBody = `{"access_token":"tok-1","expires_in":0}`
	p := newTestProvider(remote, newClock())
	ctx := context.Background()

	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	_, err = p.Token(ctx)
	require.NoError(t, err)
	tokens, _ := remote.counts()
	assert.Equal(t, 2, tokens)
}

func TestTokenMissingAPIKey(t *testing.T) {
	remote := newFakeRemote()
	cfg := testAgentConfig()
	cfg.APIKey = ""
	p := NewTokenProvider(cfg, WithHTTPClient(remote.client()))

	_, err := p.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrConfiguration))
	assert.Equal(t, "API key not configured", err.Error())

	tokens, _ := remote.counts()
	assert.Zero(t, tokens)
}

func TestTokenFetchFailureLeavesState(t *testing.T) {
	remote := newFakeRemote()
	clk := newClock()
	p := newTestProvider(remote, clk)
	ctx := context.Background()

	_, err := p.Token(ctx)
	require.NoError(t, err)
	before, _ := p.ExpiresAt()

	clk.Advance(58 * time.Minute)
	remote.mu.Lock()
	remote.tokenStatus = http.StatusBadRequest
	remote.tokenBody = `{"errorMessage":"bad key"}`
	remote.mu.Unlock()

	_, err = p.Token(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrTokenFetch))

	var xerr *errx.Error
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, http.StatusBadRequest, xerr.Status)
	assert.Contains(t, xerr.Body, "bad key")
	assert.Equal(t, "failed to get bearer token: 400", err.Error())

	after, ok := p.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestTokenMissingAccessTokenIsFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenBody = `{"expires_in":3600}`
	p := newTestProvider(remote, newClock())

	_, err := p.Token(context.Background())
	assert.True(t, errors.Is(err, errx.ErrTokenFetch))
	_, ok := p.ExpiresAt()
	assert.False(t, ok)
}

func TestTokenConcurrentCallersShareOneFetch(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenGate = make(chan struct{})
	p := newTestProvider(remote, newClock())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Token(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool {
		tokens, _ := remote.counts()
		return tokens == 1
	}, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(remote.tokenGate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-1", results[i])
	}
	tokens, _ := remote.counts()
	assert.Equal(t, 1, tokens)
}

func TestTokenClear(t *testing.T) {
	remote := newFakeRemote()
	p := newTestProvider(remote, newClock())
	ctx := context.Background()

	_, err := p.Token(ctx)
	require.NoError(t, err)

	p.Clear()
	assert.False(t, p.Cached())
	_, ok := p.ExpiresAt()
	assert.False(t, ok)

	_, err = p.Token(ctx)
	require.NoError(t, err)
	tokens, _ := remote.counts()
	assert.Equal(t, 2, tokens)
}

func TestTokenCallerCancellation(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenGate = make(chan struct{})
	p := newTestProvider(remote, newClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Token(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		tokens, _ := remote.counts()
		return tokens == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The shared fetch still completes and fills the cache.
	close(remote.tokenGate)
	require.Eventually(t, p.Cached, time.Second, 5*time.Millisecond)
}

func TestTokenClearDuringFetchIsNotUndone(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenGate = make(chan struct{})
	p := newTestProvider(remote, newClock())

	done := make(chan string, 1)
	go func() {
		tok, err := p.Token(context.Background())
		assert.NoError(t, err)
		done <- tok
	}()

	require.Eventually(t, func() bool {
		tokens, _ := remote.counts()
		return tokens == 1
	}, time.Second, 5*time.Millisecond)
	p.Clear()
	close(remote.tokenGate)

	assert.Equal(t, "tok-1", <-done)
	assert.False(t, p.Cached())

	_, err := p.Token(context.Background())
	require.NoError(t, err)
	tokens, _ := remote.counts()
	assert.Equal(t, 2, tokens)
}

func TestTokenHugeExpiryIsClamped(t *testing.T) {
	remote := newFakeRemote()
	remote.tokenBody = `{"access_token":"tok-1","expires_in":1e12}`
	clk := newClock()
	p := newTestProvider(remote, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Token(ctx)
		require.NoError(t, err)
	}
	tokens, _ := remote.counts()
	assert.Equal(t, 1, tokens)

	exp, ok := p.ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.After(clk.Now().Add(24*time.Hour)))
}

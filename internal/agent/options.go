package agent

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a TokenProvider, Client or Service.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	tokens     *TokenProvider
	sessionID  string
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// WithHTTPClient sets the transport used for identity and chat calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTokenProvider makes a Client share an existing TokenProvider.
func WithTokenProvider(p *TokenProvider) Option {
	return func(o *options) { o.tokens = p }
}

// WithSessionID starts a Client with a remote session id restored from storage.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// Package identity gives every browser an anonymous user id, kept in a cookie, and
// every tab a session id sent by the widget. Together they address a conversation.
package identity

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/helpdesk/internal/domain"
	"github.com/google/uuid"
)

const (
	AnonCookieName        = "helpdesk_anon_id"
	SessionHeaderName     = "X-Helpdesk-Session-ID"
	DefaultSessionIDValue = "default"

	anonPrefix          = "anon_"
	cookieLifetime      = 30 * 24 * time.Hour
	lastSeenGranularity = time.Minute
)

var (
	anonIDPattern    = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// Identity is who is asking: the browser's anonymous user and the tab.
type Identity struct {
	UserID    string
	Username  string
	SessionID string
}

type ctxKey struct{}

// UserStore is the persistence the middleware needs to register anonymous users.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpsertUser(ctx context.Context, user *domain.User) error
}

// NewContext returns ctx carrying the given identity, as the middleware would set it.
func NewContext(ctx context.Context, userID, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, Identity{
		UserID:    userID,
		Username:  deriveUsername(userID),
		SessionID: sanitizeSessionID(sessionID),
	})
}

// FromContext returns the identity set by Middleware or NewContext.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// UserIDFromContext returns the anonymous user id, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

// UsernameFromContext returns the display name derived from the user id, or "".
func UsernameFromContext(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.Username
}

// SessionIDFromContext returns the tab session id, DefaultSessionIDValue when unset.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok {
		return id.SessionID
	}
	return DefaultSessionIDValue
}

func newAnonID() string {
	return anonPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	if id = strings.TrimSpace(id); sessionIDPattern.MatchString(id) {
		return id
	}
	return DefaultSessionIDValue
}

// deriveUsername shows the last eight characters of the id.
func deriveUsername(userID string) string {
	if len(userID) <= len(anonPrefix)+8 {
		return "anon-user"
	}
	return "anon-" + userID[len(userID)-8:]
}

// anonID returns the cookie's id, minting a new one when the cookie is missing or
// malformed. Either way the cookie is (re)issued so it slides forward.
func anonID(w http.ResponseWriter, r *http.Request, secure bool) string {
	id := ""
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		id = c.Value
	} else {
		id = newAnonID()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieLifetime / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return id
}

func tabSessionID(r *http.Request) string {
	if sid := r.Header.Get(SessionHeaderName); sid != "" {
		return sanitizeSessionID(sid)
	}
	// Browsers cannot set headers on a WebSocket handshake.
	return sanitizeSessionID(r.URL.Query().Get("session_id"))
}

// touchUser registers first-time visitors and refreshes last_seen_at for returning
// ones at most once per lastSeenGranularity.
func touchUser(ctx context.Context, repo UserStore, userID string, now time.Time) error {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		user = &domain.User{UserID: userID, Username: deriveUsername(userID), CreatedAt: now}
	} else if now.Sub(user.LastSeenAt) < lastSeenGranularity {
		return nil
	}
	user.LastSeenAt = now
	user.UpdatedAt = now
	return repo.UpsertUser(ctx, user)
}

// Middleware attaches the anonymous identity to every request. Cookies are marked
// Secure outside development.
func Middleware(repo UserStore, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := anonID(w, r, !isDev)
			if err := touchUser(r.Context(), repo, userID, time.Now()); err != nil {
				http.Error(w, `{"error":"failed to initialize anonymous user"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), userID, tabSessionID(r))))
		})
	}
}

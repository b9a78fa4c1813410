package domain

import (
	"time"
)

// Conversation binds one browser tab of a user to the remote agent's session id.
// Only the binding is kept; message content is never stored.
type Conversation struct {
	UserID          string
	TabID           string
	RemoteSessionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key returns the registry key for the conversation.
func (c *Conversation) Key() string {
	return ConversationKey(c.UserID, c.TabID)
}

// ConversationKey joins a user id and tab id into a registry key.
func ConversationKey(userID, tabID string) string {
	return userID + ":" + tabID
}

// Expired reports whether the binding has been idle for longer than ttl.
func (c *Conversation) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(c.UpdatedAt) > ttl
}

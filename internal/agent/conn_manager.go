package agent

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the open chat WebSocket of each user's tabs. A tab has at most
// one connection; registering a second closes the first.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the connection for a user's tab, or nil.
func (m *ConnManager) GetActive(userID, tabID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[userID]; ok {
		return tabs[tabID]
	}
	return nil
}

// Register records conn as the tab's connection. A replaced connection is closed
// after the lock is released, since Close waits for the peer's handshake.
func (m *ConnManager) Register(userID, tabID string, conn *websocket.Conn) {
	m.mu.Lock()
	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}
	replaced := m.active[userID][tabID]
	m.active[userID][tabID] = conn
	m.mu.Unlock()

	if replaced != nil && replaced != conn {
		_ = replaced.Close(websocket.StatusNormalClosure, "conversation opened elsewhere")
	}
	slog.Info("Chat connection registered", "user_id", userID, "session_id", tabID)
}

// Unregister removes conn if it is still the tab's connection.
func (m *ConnManager) Unregister(userID, tabID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tabs, ok := m.active[userID]; ok {
		if current, exists := tabs[tabID]; exists && current == conn {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat connection unregistered", "user_id", userID, "session_id", tabID)
		}
	}
}

// Close terminates the connection of one tab.
func (m *ConnManager) Close(userID, tabID string) {
	conn := m.take(userID, tabID)
	if conn == nil {
		return
	}
	_ = conn.Close(websocket.StatusGoingAway, "conversation expired")
	slog.Info("Chat connection closed", "user_id", userID, "session_id", tabID)
}

// take removes and returns the tab's connection.
func (m *ConnManager) take(userID, tabID string) *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()

	tabs, ok := m.active[userID]
	if !ok {
		return nil
	}
	conn, ok := tabs[tabID]
	if !ok {
		return nil
	}
	delete(tabs, tabID)
	if len(tabs) == 0 {
		delete(m.active, userID)
	}
	return conn
}

// Count returns the number of open connections.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tabs := range m.active {
		n += len(tabs)
	}
	return n
}

package service

import (
	"sync"

	"github.com/google/uuid"
)

// ============================================================
// Session Manager
// ============================================================

// SessionManager maps opaque cookie tokens to study session ids.
type SessionManager struct {
	mu     sync.Mutex
	tokens map[string]string // token -> sessionID
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		tokens: make(map[string]string),
	}
}

func (m *SessionManager) Issue(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := uuid.NewString()
	m.tokens[token] = sessionID
	return token
}

func (m *SessionManager) Resolve(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessionID, ok := m.tokens[token]
	return sessionID, ok
}

// RevokeSession drops every token issued for sessionID.
func (m *SessionManager) RevokeSession(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for token, id := range m.tokens {
		if id == sessionID {
			delete(m.tokens, token)
			n++
		}
	}
	return n
}

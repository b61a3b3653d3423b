package tickets

import (
	"sync"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// SessionTable maps anonymous tokens back to the live user handle. It is
// never persisted: after a restart an anonymous user is unreachable until
// they send another message and a lookup repopulates their entry.
type SessionTable struct {
	mu sync.RWMutex
	m  map[string]domain.UserRef
}

// NewSessionTable returns an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{m: make(map[string]domain.UserRef)}
}

// Remember records token -> user. Last write wins.
func (t *SessionTable) Remember(token string, user domain.UserRef) {
	t.mu.Lock()
	t.m[token] = user
	t.mu.Unlock()
}

// Resolve returns the user behind token, if currently known.
func (t *SessionTable) Resolve(token string) (domain.UserRef, bool) {
	t.mu.RLock()
	u, ok := t.m[token]
	t.mu.RUnlock()
	return u, ok
}

// Forget drops token.
func (t *SessionTable) Forget(token string) {
	t.mu.Lock()
	delete(t.m, token)
	t.mu.Unlock()
}

// Len returns the number of known tokens.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

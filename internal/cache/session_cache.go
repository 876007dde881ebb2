package cache

import (
	"context"
	"sync"
	"time"
)

// OpenSessionTTL bounds how long a cached open-session id is trusted
const OpenSessionTTL = 6 * time.Hour

// SessionCache remembers each participant's open session id. It is only a
// hint: callers confirm the session against the database before using it.
type SessionCache interface {
	GetOpenSession(ctx context.Context, participantID string) (string, bool)
	SetOpenSession(ctx context.Context, participantID, sessionID string)
	InvalidateOpenSession(ctx context.Context, participantID string)
}

// NoopCache is used when Redis is not configured
type NoopCache struct{}

func (NoopCache) GetOpenSession(context.Context, string) (string, bool) { return "", false }
func (NoopCache) SetOpenSession(context.Context, string, string)        {}
func (NoopCache) InvalidateOpenSession(context.Context, string)         {}

// MemoryCache is an in-process SessionCache
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (m *MemoryCache) GetOpenSession(_ context.Context, participantID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[participantID]
	return id, ok
}

func (m *MemoryCache) SetOpenSession(_ context.Context, participantID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[participantID] = sessionID
}

func (m *MemoryCache) InvalidateOpenSession(_ context.Context, participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, participantID)
}

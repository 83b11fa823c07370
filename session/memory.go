package session

import "sync"

// memoryTier is the ephemeral storage tier. It holds at most one
// session/token pair and keeps the same raw-JSON representation as the
// persistent tier so both share one decode path.
type memoryTier struct {
	mu    sync.RWMutex
	raw   string
	token string
	held  bool
}

func (m *memoryTier) read() (raw, token string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.held {
		return "", "", false
	}
	return m.raw, m.token, true
}

func (m *memoryTier) write(raw, token string) {
	m.mu.Lock()
	m.raw = raw
	m.token = token
	m.held = true
	m.mu.Unlock()
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	m.raw = ""
	m.token = ""
	m.held = false
	m.mu.Unlock()
}

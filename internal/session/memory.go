package session

import (
	"context"
	"log"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore is a single-process Store. A janitor goroutine drops sessions
// idle for longer than the TTL.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	metrics  *Metrics
	stop     chan struct{}
	once     sync.Once
}

func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		metrics:  NewMetrics(),
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.janitor(cleanupInterval)
	}
	return m
}

func (m *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Cleanup(); n > 0 {
				log.Printf("🧹 Expired %d idle dialog sessions", n)
			}
		case <-m.stop:
			return
		}
	}
}

// Cleanup removes expired sessions and returns how many were dropped.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return m.ttl > 0 && !now.Before(e.expiresAt)
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[userID]
	if !ok || m.expired(e, m.now()) {
		m.metrics.RecordMiss()
		return New(userID), nil
	}
	m.metrics.RecordHit()
	return e.session.clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	if s.IsIdle() {
		return m.Clear(ctx, s.UserID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s.UpdatedAt = now.UTC()
	m.sessions[s.UserID] = memoryEntry{session: s.clone(), expiresAt: now.Add(m.ttl)}
	m.metrics.RecordPut()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	m.metrics.RecordClear()
	return nil
}

func (m *MemoryStore) Health(context.Context) error {
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) Stats() map[string]interface{} {
	s := m.metrics.GetStats()
	return map[string]interface{}{
		"backend":  "memory",
		"sessions": m.Len(),
		"hits":     s.Hits,
		"misses":   s.Misses,
		"puts":     s.Puts,
		"clears":   s.Clears,
		"hit_rate": m.metrics.HitRate(),
	}
}

// Close stops the janitor.
func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

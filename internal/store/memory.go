package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Memory keeps the most recent messages of every session in process.
// Sessions idle for longer than the ttl are dropped on the next access.
type Memory struct {
	mu       sync.Mutex
	limit    int
	ttl      time.Duration
	now      func() time.Time
	swept    time.Time
	sessions map[string]*memSession
}

type memSession struct {
	msgs     []Message
	lastSeen time.Time
}

// NewMemory returns a sink that keeps at most limit messages per session.
// ttl <= 0 keeps sessions until the process exits.
func NewMemory(limit int, ttl time.Duration) *Memory {
	if limit <= 0 {
		limit = 200
	}
	return &Memory{
		limit:    limit,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memSession),
	}
}

func (m *Memory) Append(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	s, ok := m.sessions[msg.SessionID]
	if !ok {
		s = &memSession{}
		m.sessions[msg.SessionID] = s
	}
	s.msgs = append(s.msgs, msg)
	if over := len(s.msgs) - m.limit; over > 0 {
		s.msgs = slices.Clone(s.msgs[over:])
	}
	s.lastSeen = m.now()
	return nil
}

func (m *Memory) History(_ context.Context, sessionID string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	s, ok := m.sessions[sessionID]
	if !ok || m.stale(s) {
		return []Message{}, nil
	}
	msgs := s.msgs
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return slices.Clone(msgs), nil
}

func (m *Memory) Sessions(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		if !m.stale(s) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) Close() error { return nil }

// expire drops idle sessions, scanning at most once per quarter ttl.
// Callers hold mu.
func (m *Memory) expire() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	if now.Sub(m.swept) < m.ttl/4 {
		return
	}
	m.swept = now
	for id, s := range m.sessions {
		if m.stale(s) {
			delete(m.sessions, id)
		}
	}
}

func (m *Memory) stale(s *memSession) bool {
	return m.ttl > 0 && m.now().Sub(s.lastSeen) > m.ttl
}

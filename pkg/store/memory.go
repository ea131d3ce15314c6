package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements MessageStore in process memory.
// It backs tests and single-node dev setups; history vanishes with the
// process.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]StoredMessage
	sessions map[string]*SessionInfo
	closed   bool
}

// NewMemoryStore creates an empty in-memory message store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]StoredMessage),
		sessions: make(map[string]*SessionInfo),
	}
}

// SaveMessage appends a message and upserts session metadata.
func (s *MemoryStore) SaveMessage(ctx context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	now := time.Now().UTC()
	s.messages[sessionID] = append(s.messages[sessionID], StoredMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: now,
	})

	info, ok := s.sessions[sessionID]
	if !ok {
		info = &SessionInfo{SessionID: sessionID, CreatedAt: now}
		s.sessions[sessionID] = info
	}
	info.LastActivity = now

	return nil
}

// History returns up to limit messages in chronological order.
func (s *MemoryStore) History(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	msgs := s.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	out := make([]StoredMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// ListSessions returns sessions ordered by last activity, most recent first.
func (s *MemoryStore) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	if limit <= 0 {
		limit = DefaultSessionsLimit
	}

	out := make([]SessionInfo, 0, len(s.sessions))
	for _, info := range s.sessions {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats returns message counts for a session.
func (s *MemoryStore) Stats(ctx context.Context, sessionID string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Stats{}, ErrStorageClosed
	}

	var stats Stats
	for _, msg := range s.messages[sessionID] {
		stats.TotalMessages++
		switch msg.Role {
		case "user":
			stats.UserMessages++
		case "assistant":
			stats.AssistantMessages++
		}
	}
	return stats, nil
}

// DeleteSession removes a session's messages and metadata.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	delete(s.messages, sessionID)
	delete(s.sessions, sessionID)
	return nil
}

// Ping always succeeds while the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStorageClosed
	}
	return nil
}

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

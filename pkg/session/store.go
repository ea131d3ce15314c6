package session

import (
	"sync"
	"time"
)

// record is the per-session state owned by the store.
type record struct {
	turns        []Turn
	lastAccessed time.Time
}

// ContextStore maps session IDs to live conversations.
// ContextStore is safe for concurrent use; operations on the same session
// ID are linearizable. A single mutex guards the whole map — operations
// are in-memory and cheap, so finer sharding buys nothing here.
//
// Construct one store per process (or per test) with NewContextStore and
// pass it explicitly to whatever handles inbound requests.
type ContextStore struct {
	cfg      Config
	mu       sync.Mutex
	sessions map[string]*record

	// now is swapped out by tests to control expiry.
	now func() time.Time
}

// NewContextStore creates an empty context store.
func NewContextStore(cfg Config) *ContextStore {
	return &ContextStore{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*record),
		now:      time.Now,
	}
}

// GetOrCreate returns the conversation for sessionID, creating the session
// with a fresh system turn if it does not exist. The session's last-access
// time is refreshed either way. Any string is accepted as a session ID and
// the call always succeeds.
//
// The returned conversation is a copy; callers never hold an alias into
// the store's own state.
func (s *ContextStore) GetOrCreate(sessionID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrCreateLocked(sessionID)
	return s.snapshotLocked(rec)
}

// Append adds a turn to the session's conversation, creating the session
// first if needed. Once the conversation would exceed the window (system
// turn + MaxTurns), the oldest conversational turns are dropped; the
// system turn is never dropped or reordered. Empty content is stored
// as-is. The session's last-access time is refreshed.
func (s *ContextStore) Append(sessionID string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrCreateLocked(sessionID)
	rec.turns = append(rec.turns, Turn{Role: role, Content: content})

	// Window: system turn + MaxTurns conversational turns. On overflow keep
	// the system turn plus the most recent MaxTurns-1 turns, matching the
	// burst-truncation behavior callers already depend on.
	if limit := s.cfg.MaxTurns + 1; len(rec.turns) > limit {
		kept := make([]Turn, 0, s.cfg.MaxTurns)
		kept = append(kept, rec.turns[0])
		kept = append(kept, rec.turns[len(rec.turns)-(s.cfg.MaxTurns-1):]...)
		rec.turns = kept
	}
}

// Reset removes the session entirely. Resetting an unknown session is a
// no-op, not an error. The next GetOrCreate for the same ID starts from a
// brand-new system turn.
func (s *ContextStore) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// CleanupExpired removes every session whose last access is strictly older
// than maxAge ago and returns the number removed. The store runs no timer
// of its own; callers decide the sweep cadence.
func (s *ContextStore) CleanupExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, rec := range s.sessions {
		if rec.lastAccessed.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *ContextStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ContextStore) getOrCreateLocked(sessionID string) *record {
	rec, ok := s.sessions[sessionID]
	if !ok {
		rec = &record{
			turns: []Turn{{Role: RoleSystem, Content: s.cfg.SystemPrompt}},
		}
		s.sessions[sessionID] = rec
	}
	rec.lastAccessed = s.now()
	return rec
}

func (s *ContextStore) snapshotLocked(rec *record) Conversation {
	out := make(Conversation, len(rec.turns))
	copy(out, rec.turns)
	return out
}

// Package store persists conversation history for audit and replay.
// It is the durable system of record; the live context in pkg/session is
// a cache over it and the two are deliberately not kept in lockstep.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStorageClosed is returned when operating on a closed store.
	ErrStorageClosed = errors.New("message store is closed")
)

// StoredMessage is one persisted conversation message.
type StoredMessage struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// SessionID links the message to its session.
	SessionID string `json:"session_id"`
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is when the message was saved, UTC.
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo summarizes one session's durable metadata.
type SessionInfo struct {
	// SessionID is the caller-supplied session identifier.
	SessionID string `json:"session_id"`
	// CreatedAt is set once, on the session's first saved message.
	CreatedAt time.Time `json:"created_at"`
	// LastActivity is updated on every saved message.
	LastActivity time.Time `json:"last_activity"`
}

// Stats holds per-session message counts.
type Stats struct {
	TotalMessages     int `json:"total_messages"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
}

// MessageStore abstracts durable conversation history.
// Implementations must be safe for concurrent use.
type MessageStore interface {
	// SaveMessage appends a message and upserts the session metadata
	// (created_at set-once, last_activity always refreshed).
	SaveMessage(ctx context.Context, sessionID, role, content string) error

	// History returns up to limit messages for a session in
	// chronological order.
	History(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error)

	// ListSessions returns up to limit sessions ordered by last activity,
	// most recent first.
	ListSessions(ctx context.Context, limit int) ([]SessionInfo, error)

	// Stats returns message counts for a session.
	Stats(ctx context.Context, sessionID string) (Stats, error)

	// DeleteSession removes a session's messages and metadata.
	// Returns ErrSessionNotFound if the session doesn't exist.
	DeleteSession(ctx context.Context, sessionID string) error

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// DefaultHistoryLimit bounds History queries when the caller passes no
// explicit limit.
const DefaultHistoryLimit = 50

// DefaultSessionsLimit bounds ListSessions queries when the caller passes
// no explicit limit.
const DefaultSessionsLimit = 100

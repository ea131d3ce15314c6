package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements MessageStore using Google Cloud Firestore.
// Messages live in one collection, session metadata in another, so
// listing sessions never scans message documents.
//
// Important Notes:
//   - History and ListSessions queries need single-field indexes on
//     timestamp and last_activity (created by default in Firestore)
//   - Deletes use BulkWriter to stay under batch limits
type FirestoreStore struct {
	client   *firestore.Client
	messages *firestore.CollectionRef
	sessions *firestore.CollectionRef
	mu       sync.RWMutex
	closed   bool
}

// FirestoreConfig holds Firestore connection configuration.
type FirestoreConfig struct {
	// ProjectID is the GCP project ID (required).
	ProjectID string
	// CredentialsFile is a service account key path; when empty,
	// Application Default Credentials are used.
	CredentialsFile string
	// MessagesCollection overrides the message collection name
	// (default: "conversations").
	MessagesCollection string
	// SessionsCollection overrides the session metadata collection name
	// (default: "sessions").
	SessionsCollection string
}

// NewFirestoreStore creates a Firestore-backed message store.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	msgColl := cfg.MessagesCollection
	if msgColl == "" {
		msgColl = "conversations"
	}
	sessColl := cfg.SessionsCollection
	if sessColl == "" {
		sessColl = "sessions"
	}

	return &FirestoreStore{
		client:   client,
		messages: client.Collection(msgColl),
		sessions: client.Collection(sessColl),
	}, nil
}

func (s *FirestoreStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStorageClosed
	}
	return nil
}

// SaveMessage appends a message and upserts session metadata.
func (s *FirestoreStore) SaveMessage(ctx context.Context, sessionID, role, content string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	now := time.Now().UTC()
	msgID := uuid.New().String()

	_, err := s.messages.Doc(msgID).Set(ctx, map[string]any{
		"id":         msgID,
		"session_id": sessionID,
		"role":       role,
		"content":    content,
		"timestamp":  now,
	})
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	// created_at only lands on the first write for a session; merge
	// semantics keep it untouched afterwards.
	sessDoc := s.sessions.Doc(sessionID)
	_, err = sessDoc.Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return fmt.Errorf("get session metadata: %w", err)
		}
		_, err = sessDoc.Set(ctx, map[string]any{
			"session_id":    sessionID,
			"created_at":    now,
			"last_activity": now,
		})
		if err != nil {
			return fmt.Errorf("create session metadata: %w", err)
		}
		return nil
	}

	_, err = sessDoc.Set(ctx, map[string]any{
		"last_activity": now,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("update session metadata: %w", err)
	}
	return nil
}

// History returns up to limit messages in chronological order.
func (s *FirestoreStore) History(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	iter := s.messages.
		Where("session_id", "==", sessionID).
		OrderBy("timestamp", firestore.Asc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var messages []StoredMessage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		messages = append(messages, docToMessage(doc))
	}
	return messages, nil
}

// ListSessions returns sessions ordered by last activity, most recent first.
func (s *FirestoreStore) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSessionsLimit
	}

	iter := s.sessions.
		OrderBy("last_activity", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var sessions []SessionInfo
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		data := doc.Data()
		sessions = append(sessions, SessionInfo{
			SessionID:    stringField(data, "session_id"),
			CreatedAt:    timeField(data, "created_at"),
			LastActivity: timeField(data, "last_activity"),
		})
	}
	return sessions, nil
}

// Stats returns message counts for a session.
func (s *FirestoreStore) Stats(ctx context.Context, sessionID string) (Stats, error) {
	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}

	iter := s.messages.
		Where("session_id", "==", sessionID).
		Select("role").
		Documents(ctx)
	defer iter.Stop()

	var stats Stats
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return Stats{}, fmt.Errorf("load stats: %w", err)
		}
		stats.TotalMessages++
		switch stringField(doc.Data(), "role") {
		case "user":
			stats.UserMessages++
		case "assistant":
			stats.AssistantMessages++
		}
	}
	return stats, nil
}

// DeleteSession removes a session's messages and metadata.
func (s *FirestoreStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	sessDoc := s.sessions.Doc(sessionID)
	if _, err := sessDoc.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session metadata: %w", err)
	}

	bulkWriter := s.client.BulkWriter(ctx)
	iter := s.messages.Where("session_id", "==", sessionID).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bulkWriter.End()
			return fmt.Errorf("query messages for delete: %w", err)
		}
		if _, err := bulkWriter.Delete(doc.Ref); err != nil {
			bulkWriter.End()
			return fmt.Errorf("delete message: %w", err)
		}
	}
	if _, err := bulkWriter.Delete(sessDoc); err != nil {
		bulkWriter.End()
		return fmt.Errorf("delete session metadata: %w", err)
	}
	bulkWriter.End()
	return nil
}

// Ping verifies Firestore is reachable with a cheap single-document read.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	iter := s.sessions.Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

func docToMessage(doc *firestore.DocumentSnapshot) StoredMessage {
	data := doc.Data()
	return StoredMessage{
		ID:        stringField(data, "id"),
		SessionID: stringField(data, "session_id"),
		Role:      stringField(data, "role"),
		Content:   stringField(data, "content"),
		Timestamp: timeField(data, "timestamp"),
	}
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func timeField(data map[string]any, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}

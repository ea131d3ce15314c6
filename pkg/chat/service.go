// Package chat orchestrates a single conversational exchange: it feeds
// the live session context to an LLM provider, persists the transcript,
// and shields callers from provider outages.
package chat

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxgo-dev/voxgo/pkg/llm/provider"
	"github.com/voxgo-dev/voxgo/pkg/observability"
	"github.com/voxgo-dev/voxgo/pkg/session"
	"github.com/voxgo-dev/voxgo/pkg/store"
)

// FallbackReply is spoken to the user when the LLM provider fails.
// The exchange still succeeds; the failure is logged, not surfaced.
const FallbackReply = "I'm having trouble connecting to my AI brain right now. Please try again in a moment."

// ErrRateLimited is returned when a request exceeds the configured rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// Options configures a chat Service.
type Options struct {
	// History persists the transcript. Optional; persistence failures
	// never fail a chat request.
	History store.MessageStore

	// HistoryBackend labels write-failure metrics ("memory", "redis",
	// "firestore"). Defaults to "history".
	HistoryBackend string

	// Limiter bounds request rates. Optional.
	Limiter *RateLimiter

	// Model, Temperature and MaxTokens are passed through to the
	// provider, which applies its own defaults for zero values.
	Model       string
	Temperature float64
	MaxTokens   int
}

// Service handles chat exchanges against a live session context.
type Service struct {
	sessions *session.ContextStore
	provider provider.Provider
	history  store.MessageStore
	limiter  *RateLimiter
	opts     Options
}

// New creates a chat service.
func New(sessions *session.ContextStore, prov provider.Provider, opts Options) *Service {
	if opts.HistoryBackend == "" {
		opts.HistoryBackend = "history"
	}
	return &Service{
		sessions: sessions,
		provider: prov,
		history:  opts.History,
		limiter:  opts.Limiter,
		opts:     opts,
	}
}

// Chat runs one exchange: the user message joins the session context,
// the full context goes to the provider, and the reply is appended and
// returned. Provider failures degrade to FallbackReply instead of an
// error so a voice client always has something to say.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (string, error) {
	if s.limiter != nil && !s.limiter.Allow(sessionID) {
		return "", ErrRateLimited
	}

	ctx, span := observability.StartSpan(ctx, "chat.exchange",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	start := time.Now()

	s.sessions.Append(sessionID, session.RoleUser, message)
	s.persist(ctx, sessionID, "user", message)

	conv := s.sessions.GetOrCreate(sessionID)
	span.SetAttributes(attribute.Int("session.turns", len(conv)))

	reply := FallbackReply
	resp, err := s.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages:    toProviderMessages(conv),
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		// Context cancellation means the caller is gone; no point in
		// recording a fallback exchange they will never hear.
		if ctx.Err() != nil {
			span.RecordError(err)
			return "", ctx.Err()
		}
		log.Printf("chat: provider %s failed for session %s: %v", s.provider.Name(), sessionID, err)
		span.RecordError(err)
	} else {
		reply = resp.Content
	}

	s.sessions.Append(sessionID, session.RoleAssistant, reply)
	s.persist(ctx, sessionID, "assistant", reply)

	span.SetAttributes(attribute.Float64("chat.duration_seconds", time.Since(start).Seconds()))
	return reply, nil
}

// Reset clears the live context for a session. Durable history is kept.
func (s *Service) Reset(sessionID string) {
	s.sessions.Reset(sessionID)
	if s.limiter != nil {
		s.limiter.Forget(sessionID)
	}
}

// CleanupExpired removes live contexts idle for longer than maxAge and
// returns how many were removed.
func (s *Service) CleanupExpired(maxAge time.Duration) int {
	removed := s.sessions.CleanupExpired(maxAge)
	if removed > 0 {
		observability.RecordSessionsExpired(removed)
	}
	if s.limiter != nil {
		s.limiter.PruneIdle(maxAge)
	}
	observability.SetActiveSessions(s.sessions.Len())
	return removed
}

// ActiveSessions returns the number of live session contexts.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

// Context returns a copy of the live conversation for a session,
// creating it if needed.
func (s *Service) Context(sessionID string) session.Conversation {
	return s.sessions.GetOrCreate(sessionID)
}

// persist writes one message to durable history. Best effort: a slow or
// broken store must not break the voice loop.
func (s *Service) persist(ctx context.Context, sessionID, role, content string) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveMessage(ctx, sessionID, role, content); err != nil {
		observability.RecordStoreWriteFailure(s.opts.HistoryBackend)
		log.Printf("chat: failed to persist %s message for session %s: %v", role, sessionID, err)
	}
}

func toProviderMessages(conv session.Conversation) []provider.Message {
	messages := make([]provider.Message, len(conv))
	for i, turn := range conv {
		messages[i] = provider.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
	}
	return messages
}

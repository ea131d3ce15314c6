// Package session maintains bounded in-memory conversational context for
// the voice assistant. The ContextStore owns every live conversation: it
// creates sessions lazily on first access, enforces a bounded context
// window per session, and governs session lifecycle (creation, explicit
// reset, expiry sweep) under concurrent access.
//
// The store holds no durable state. Process restart loses all live
// context; conversation history persistence is the job of pkg/store.
package session

// Role identifies the speaker of a turn.
type Role string

const (
	// RoleSystem is the fixed instruction turn at index 0 of every conversation.
	RoleSystem Role = "system"
	// RoleUser is a turn supplied by the caller.
	RoleUser Role = "user"
	// RoleAssistant is a turn generated by the completion provider.
	RoleAssistant Role = "assistant"
)

// Turn is one message within a session. Immutable once created.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered sequence of turns sent to the completion
// provider as context. Index 0 is always the system turn.
type Conversation []Turn

// DefaultSystemPrompt is the instruction installed at index 0 of every new
// session.
const DefaultSystemPrompt = "You are a helpful voice assistant. Keep responses concise and conversational since they will be spoken aloud. Avoid using formatting like bullet points or numbered lists."

// DefaultMaxTurns is the number of conversational turns retained per
// session, not counting the system turn.
const DefaultMaxTurns = 20

// Config holds context store configuration.
type Config struct {
	// SystemPrompt is the system instruction for new sessions.
	// Default: DefaultSystemPrompt.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxTurns caps the conversational turns kept per session (the system
	// turn is always kept on top of this). Default: DefaultMaxTurns.
	MaxTurns int `yaml:"max_turns"`
}

// DefaultConfig returns the default context store configuration.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: DefaultSystemPrompt,
		MaxTurns:     DefaultMaxTurns,
	}
}

func (c Config) withDefaults() Config {
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	return c
}

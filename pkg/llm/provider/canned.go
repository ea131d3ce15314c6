package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

func init() {
	RegisterFactory("canned", func(config map[string]any) (Provider, error) {
		return NewCannedProvider(), nil
	})
}

var cannedDefaults = []string{
	"That's an interesting question! I'm currently running in offline mode, but I'm here to help test the voice interface.",
	"I hear you loud and clear! Once connected to a completion provider, I'll be able to give more helpful answers.",
	"Great to talk with you! Right now I'm using pre-programmed responses, but the voice features are working perfectly.",
	"I'm listening! This is a canned response to test the voice assistant functionality.",
	"Thanks for testing the voice interface with me! Everything seems to be working smoothly.",
}

var cannedGreetings = []string{
	"Hello! Nice to meet you. I'm your voice assistant in offline mode.",
	"Hi there! Great to hear your voice. How can I help you today?",
	"Hey! I'm ready to chat. What's on your mind?",
}

var cannedFarewells = []string{
	"Goodbye! It was nice talking with you.",
	"See you later! Have a great day.",
	"Take care! Feel free to come back anytime.",
}

var cannedJokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs!",
	"Why did the developer go broke? Because they used up all their cache!",
	"How many programmers does it take to change a light bulb? None, that's a hardware problem!",
}

// CannedProvider answers from a fixed response pool without any network
// calls. It keeps the backend usable with no API key configured and gives
// integration tests a deterministic-enough collaborator.
type CannedProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCannedProvider creates a new canned provider.
func NewCannedProvider() *CannedProvider {
	return &CannedProvider{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// Name returns the provider name
func (p *CannedProvider) Name() string {
	return "canned"
}

// CreateCompletion picks a reply based on simple patterns in the last user
// message.
func (p *CannedProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = strings.ToLower(req.Messages[i].Content)
			break
		}
	}

	content := p.respond(last, len(req.Messages))
	return &CompletionResponse{
		Content:      content,
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     estimateTokens(req.Messages),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(req.Messages) + len(content)/4,
		},
	}, nil
}

func (p *CannedProvider) respond(last string, messageCount int) string {
	switch {
	case containsAny(last, "hello", "hi", "hey", "greetings"):
		return p.pick(cannedGreetings)
	case containsAny(last, "bye", "goodbye", "see you", "later"):
		return p.pick(cannedFarewells)
	case containsAny(last, "how are you", "how's it going", "what's up"):
		return "I'm doing great, thanks for asking! I'm currently in offline mode but all the voice features are working well."
	case strings.Contains(last, "name") && (strings.Contains(last, "your") || strings.Contains(last, "what")):
		return "I'm your voice assistant! Right now I'm running in test mode with canned responses."
	case strings.Contains(last, "joke"):
		return p.pick(cannedJokes)
	case messageCount > 5:
		// Show a little context awareness once the conversation has depth.
		return fmt.Sprintf("We've been chatting for a bit now! I'm keeping track of our %d message conversation in this session.", messageCount-1)
	default:
		return p.pick(cannedDefaults)
	}
}

func (p *CannedProvider) pick(pool []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.Intn(len(pool))]
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func estimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}

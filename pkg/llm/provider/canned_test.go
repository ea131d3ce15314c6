package provider

import (
	"context"
	"strings"
	"testing"
)

func TestCannedProviderPatterns(t *testing.T) {
	p := NewCannedProvider()
	ctx := context.Background()

	tests := []struct {
		name     string
		message  string
		wantPool []string
		wantSub  string
	}{
		{
			name:     "greeting",
			message:  "Hello there",
			wantPool: cannedGreetings,
		},
		{
			name:     "farewell",
			message:  "ok goodbye now",
			wantPool: cannedFarewells,
		},
		{
			name:    "how are you",
			message: "how are you doing",
			wantSub: "doing great",
		},
		{
			name:    "name question",
			message: "what is your name",
			wantSub: "voice assistant",
		},
		{
			name:     "joke",
			message:  "tell me a joke",
			wantPool: cannedJokes,
		},
		{
			name:     "default",
			message:  "what is the weather on mars",
			wantPool: cannedDefaults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := p.CreateCompletion(ctx, CompletionRequest{
				Messages: []Message{
					{Role: "system", Content: "sys"},
					{Role: "user", Content: tt.message},
				},
			})
			if err != nil {
				t.Fatalf("CreateCompletion() error = %v", err)
			}
			if resp.FinishReason != "stop" {
				t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
			}

			if tt.wantSub != "" {
				if !strings.Contains(resp.Content, tt.wantSub) {
					t.Errorf("Content = %q, want substring %q", resp.Content, tt.wantSub)
				}
				return
			}
			found := false
			for _, candidate := range tt.wantPool {
				if resp.Content == candidate {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Content = %q, not in expected pool", resp.Content)
			}
		})
	}
}

func TestCannedProviderContextAwareness(t *testing.T) {
	p := NewCannedProvider()

	messages := []Message{{Role: "system", Content: "sys"}}
	for i := 0; i < 6; i++ {
		messages = append(messages, Message{Role: "user", Content: "tell me more about that topic"})
	}

	resp, err := p.CreateCompletion(context.Background(), CompletionRequest{Messages: messages})
	if err != nil {
		t.Fatalf("CreateCompletion() error = %v", err)
	}
	if !strings.Contains(resp.Content, "chatting for a bit") {
		t.Errorf("Content = %q, want context-aware reply", resp.Content)
	}
}

func TestCannedProviderCancelledContext(t *testing.T) {
	p := NewCannedProvider()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.CreateCompletion(ctx, CompletionRequest{}); err == nil {
		t.Fatal("CreateCompletion() with cancelled context should fail")
	}
}

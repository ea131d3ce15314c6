package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateNewSession(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	conv := store.GetOrCreate("sess-1")
	if len(conv) != 1 {
		t.Fatalf("new conversation length = %d, want 1", len(conv))
	}
	if conv[0].Role != RoleSystem {
		t.Errorf("first turn role = %q, want %q", conv[0].Role, RoleSystem)
	}
	if conv[0].Content != DefaultSystemPrompt {
		t.Errorf("system turn content = %q, want default prompt", conv[0].Content)
	}
}

func TestGetOrCreateAcceptsAnyID(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	for _, id := range []string{"", "user 42", "☎️", "a/b/../c"} {
		conv := store.GetOrCreate(id)
		if len(conv) != 1 || conv[0].Role != RoleSystem {
			t.Errorf("GetOrCreate(%q) = %v, want single system turn", id, conv)
		}
	}
}

func TestAppendLength(t *testing.T) {
	tests := []struct {
		appends int
		want    int
	}{
		{appends: 0, want: 1},
		{appends: 1, want: 2},
		{appends: 5, want: 6},
		{appends: 19, want: 20},
		{appends: 20, want: 21},
		// Past the window the length oscillates between 20 and 21: the
		// store truncates in bursts, only once the window is exceeded.
		{appends: 21, want: 20},
		{appends: 22, want: 21},
		{appends: 25, want: 20},
		{appends: 100, want: 21},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d appends", tt.appends), func(t *testing.T) {
			store := NewContextStore(DefaultConfig())
			for i := 1; i <= tt.appends; i++ {
				store.Append("sess", RoleUser, fmt.Sprintf("turn-%d", i))
			}
			conv := store.GetOrCreate("sess")
			if len(conv) != tt.want {
				t.Errorf("length after %d appends = %d, want %d", tt.appends, len(conv), tt.want)
			}
			if len(conv) > DefaultMaxTurns+1 {
				t.Errorf("length %d exceeds window %d", len(conv), DefaultMaxTurns+1)
			}
		})
	}
}

func TestTruncationKeepsRecentTail(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	for i := 1; i <= 25; i++ {
		store.Append("sess", RoleUser, fmt.Sprintf("T%d", i))
	}

	conv := store.GetOrCreate("sess")
	if len(conv) != 20 {
		t.Fatalf("length = %d, want 20", len(conv))
	}
	if conv[0].Role != RoleSystem {
		t.Fatalf("first turn role = %q, want system", conv[0].Role)
	}
	// T1..T6 dropped, T7..T25 retained in order.
	for i := 0; i < 19; i++ {
		want := fmt.Sprintf("T%d", i+7)
		if conv[i+1].Content != want {
			t.Errorf("conv[%d] = %q, want %q", i+1, conv[i+1].Content, want)
		}
	}
}

func TestOrderPreserved(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.Append("sess", RoleUser, "first")
	store.Append("sess", RoleAssistant, "second")
	store.Append("sess", RoleUser, "third")

	conv := store.GetOrCreate("sess")
	got := []string{conv[1].Content, conv[2].Content, conv[3].Content}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("conv[%d] = %q, want %q", i+1, got[i], want[i])
		}
	}
}

func TestAppendCreatesSession(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.Append("unseen", RoleUser, "hello")

	conv := store.GetOrCreate("unseen")
	if len(conv) != 2 {
		t.Fatalf("length = %d, want 2", len(conv))
	}
	if conv[0].Role != RoleSystem {
		t.Errorf("conv[0] role = %q, want system", conv[0].Role)
	}
	if conv[1].Content != "hello" {
		t.Errorf("conv[1] content = %q, want %q", conv[1].Content, "hello")
	}
}

func TestAppendEmptyContentStored(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.Append("sess", RoleUser, "")

	conv := store.GetOrCreate("sess")
	if len(conv) != 2 {
		t.Fatalf("length = %d, want 2", len(conv))
	}
	if conv[1].Content != "" {
		t.Errorf("content = %q, want empty", conv[1].Content)
	}
}

func TestResetIdempotent(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	// Resetting an unknown session is a no-op.
	store.Reset("never-seen")
	if store.Len() != 0 {
		t.Errorf("Len() = %d after resetting unknown session, want 0", store.Len())
	}

	store.Append("sess", RoleUser, "hi")
	store.Reset("sess")
	store.Reset("sess")
	if store.Len() != 0 {
		t.Errorf("Len() = %d after double reset, want 0", store.Len())
	}
}

func TestResetThenRecreateFresh(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.Append("sess", RoleUser, "before reset")
	store.Reset("sess")

	conv := store.GetOrCreate("sess")
	if len(conv) != 1 {
		t.Fatalf("length after reset = %d, want 1", len(conv))
	}
	if conv[0].Role != RoleSystem {
		t.Errorf("role = %q, want system", conv[0].Role)
	}
	for _, turn := range conv {
		if turn.Content == "before reset" {
			t.Error("conversational turn survived reset")
		}
	}
}

func TestCleanupExpired(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time { return clock }

	store.GetOrCreate("old")
	clock = base.Add(10 * time.Minute)
	store.GetOrCreate("fresh")

	// Cutoff falls strictly between the two access times.
	clock = base.Add(20 * time.Minute)
	removed := store.CleanupExpired(15 * time.Minute)
	if removed != 1 {
		t.Fatalf("CleanupExpired() = %d, want 1", removed)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}

	// The expired session comes back fresh.
	conv := store.GetOrCreate("old")
	if len(conv) != 1 || conv[0].Role != RoleSystem {
		t.Errorf("recreated session = %v, want single system turn", conv)
	}
}

func TestCleanupExpiredNothingToRemove(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.GetOrCreate("sess")
	if removed := store.CleanupExpired(24 * time.Hour); removed != 0 {
		t.Errorf("CleanupExpired() = %d, want 0", removed)
	}
}

func TestAppendRefreshesLastAccess(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time { return clock }

	store.GetOrCreate("sess")
	clock = base.Add(10 * time.Minute)
	store.Append("sess", RoleUser, "still here")

	clock = base.Add(12 * time.Minute)
	if removed := store.CleanupExpired(5 * time.Minute); removed != 0 {
		t.Errorf("session expired despite recent append, removed = %d", removed)
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			store.Append("sess", RoleUser, fmt.Sprintf("tag-%d", i))
		}(i)
	}
	wg.Wait()

	conv := store.GetOrCreate("sess")
	if len(conv) != DefaultMaxTurns+1 {
		t.Fatalf("length = %d, want %d", len(conv), DefaultMaxTurns+1)
	}
	if conv[0].Role != RoleSystem {
		t.Fatalf("first turn role = %q, want system", conv[0].Role)
	}

	// Every retained turn must be one of the appended tags, with no
	// duplicates among the retained tail.
	seen := make(map[string]bool)
	for _, turn := range conv[1:] {
		var i int
		if _, err := fmt.Sscanf(turn.Content, "tag-%d", &i); err != nil || i < 0 || i >= n {
			t.Errorf("unexpected turn content %q", turn.Content)
		}
		if seen[turn.Content] {
			t.Errorf("duplicated turn %q", turn.Content)
		}
		seen[turn.Content] = true
	}
}

func TestConcurrentMixedOperations(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			store.Append(fmt.Sprintf("sess-%d", i%5), RoleUser, "msg")
		}(i)
		go func(i int) {
			defer wg.Done()
			store.GetOrCreate(fmt.Sprintf("sess-%d", i%5))
		}(i)
		go func() {
			defer wg.Done()
			store.CleanupExpired(time.Hour)
		}()
	}
	wg.Wait()

	if store.Len() > 5 {
		t.Errorf("Len() = %d, want at most 5", store.Len())
	}
}

func TestSessionIsolation(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.Append("a", RoleUser, "a1")
	store.Append("b", RoleUser, "b1")
	store.Append("a", RoleAssistant, "a2")
	store.Append("b", RoleAssistant, "b2")
	store.Reset("b")
	store.Append("a", RoleUser, "a3")

	convA := store.GetOrCreate("a")
	if len(convA) != 4 {
		t.Fatalf("session a length = %d, want 4", len(convA))
	}
	for i, want := range []string{"a1", "a2", "a3"} {
		if convA[i+1].Content != want {
			t.Errorf("a[%d] = %q, want %q", i+1, convA[i+1].Content, want)
		}
	}

	convB := store.GetOrCreate("b")
	if len(convB) != 1 {
		t.Errorf("session b length after reset = %d, want 1", len(convB))
	}
}

func TestConversationIsCopy(t *testing.T) {
	store := NewContextStore(DefaultConfig())

	store.Append("sess", RoleUser, "original")
	conv := store.GetOrCreate("sess")
	conv[1].Content = "mutated"

	again := store.GetOrCreate("sess")
	if again[1].Content != "original" {
		t.Errorf("store state mutated through returned conversation: %q", again[1].Content)
	}
}

func TestCustomConfig(t *testing.T) {
	store := NewContextStore(Config{SystemPrompt: "be terse", MaxTurns: 4})

	for i := 1; i <= 10; i++ {
		store.Append("sess", RoleUser, fmt.Sprintf("T%d", i))
	}

	conv := store.GetOrCreate("sess")
	if conv[0].Content != "be terse" {
		t.Errorf("system prompt = %q, want %q", conv[0].Content, "be terse")
	}
	if len(conv) > 5 {
		t.Errorf("length = %d, want at most 5", len(conv))
	}
	last := conv[len(conv)-1]
	if last.Content != "T10" {
		t.Errorf("last turn = %q, want T10", last.Content)
	}
}

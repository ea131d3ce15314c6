package provider

import (
	"testing"
)

func TestRegistryNew(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("test", func(config map[string]any) (Provider, error) {
		return NewMockProvider("test"), nil
	})

	p, err := r.New("test", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "test" {
		t.Errorf("Name() = %q, want %q", p.Name(), "test")
	}
}

func TestRegistryNewUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New("nope", nil); err == nil {
		t.Fatal("New() with unknown provider should fail")
	}
}

func TestRegistryHasAndList(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("b", func(map[string]any) (Provider, error) { return NewMockProvider("b"), nil })
	r.RegisterFactory("a", func(map[string]any) (Provider, error) { return NewMockProvider("a"), nil })

	if !r.Has("a") || !r.Has("b") {
		t.Error("Has() should report registered factories")
	}
	if r.Has("c") {
		t.Error("Has() should not report unregistered factories")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("List() = %v, want [a b]", names)
	}
}

func TestGlobalRegistryBuiltins(t *testing.T) {
	// The built-in factories register themselves via init.
	for _, name := range []string{"openai", "gemini", "canned"} {
		if !Has(name) {
			t.Errorf("built-in provider %q not registered", name)
		}
	}
}

func TestCannedFactoryNeedsNoConfig(t *testing.T) {
	p, err := New("canned", nil)
	if err != nil {
		t.Fatalf("New(canned) error = %v", err)
	}
	if p.Name() != "canned" {
		t.Errorf("Name() = %q, want canned", p.Name())
	}
}

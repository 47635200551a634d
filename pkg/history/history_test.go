package history

import (
	"errors"
	"testing"
)

func TestMemoryPushReplaceCurrent(t *testing.T) {
	h := NewMemory()
	if _, ok := h.Current(); ok {
		t.Fatal("empty history should have no current entry")
	}

	h.Push(Entry{URL: "/a"})
	h.Push(Entry{URL: "/b"})
	cur, ok := h.Current()
	if !ok || cur.URL != "/b" {
		t.Fatalf("current = %v %v, want /b", cur, ok)
	}

	h.Replace(Entry{URL: "/b2", State: 42})
	cur, _ = h.Current()
	if cur.URL != "/b2" || cur.State != 42 {
		t.Errorf("after replace current = %v", cur)
	}
	if h.Len() != 2 {
		t.Errorf("len = %d, want 2", h.Len())
	}
}

func TestMemoryBackForwardTruncation(t *testing.T) {
	h := NewMemory()
	h.Push(Entry{URL: "/a"})
	h.Push(Entry{URL: "/b"})
	h.Push(Entry{URL: "/c"})

	e, err := h.Back()
	if err != nil || e.URL != "/b" {
		t.Fatalf("back = %v %v", e, err)
	}
	e, err = h.Back()
	if err != nil || e.URL != "/a" {
		t.Fatalf("back = %v %v", e, err)
	}
	if _, err := h.Back(); !errors.Is(err, ErrEdge) {
		t.Fatalf("back past start: err = %v, want ErrEdge", err)
	}

	e, err = h.Forward()
	if err != nil || e.URL != "/b" {
		t.Fatalf("forward = %v %v", e, err)
	}

	// Pushing from the middle drops the forward entries.
	h.Push(Entry{URL: "/d"})
	if _, err := h.Forward(); !errors.Is(err, ErrEdge) {
		t.Fatalf("forward after push: err = %v, want ErrEdge", err)
	}
	if h.Len() != 3 {
		t.Errorf("len = %d, want 3", h.Len())
	}
}

func TestMemoryReplaceOnEmpty(t *testing.T) {
	h := NewMemory()
	h.Replace(Entry{URL: "/only"})
	cur, ok := h.Current()
	if !ok || cur.URL != "/only" {
		t.Fatalf("current = %v %v, want /only", cur, ok)
	}
	if h.Len() != 1 {
		t.Errorf("len = %d, want 1", h.Len())
	}
}

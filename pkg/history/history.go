// Package history abstracts the session history the navigation pipeline
// writes to. The in-memory implementation backs tests and server-held
// sessions; a browser-backed implementation would satisfy the same interface.
package history

import (
	"errors"
	"sync"
)

// ErrEdge is returned when stepping past either end of the history.
var ErrEdge = errors.New("history: no entry in that direction")

// Entry is one history record: a committed URL plus the state value the
// navigation carried.
type Entry struct {
	URL   string
	State any
}

// History is the pipeline's view of session history. Implementations must be
// safe for concurrent use.
type History interface {
	// Push appends an entry, truncating any forward entries.
	Push(e Entry)

	// Replace overwrites the current entry without moving the cursor.
	Replace(e Entry)

	// Current returns the entry at the cursor, ok=false when empty.
	Current() (Entry, bool)
}

// Memory is an in-memory History with back/forward traversal.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	cursor  int
}

// NewMemory creates an empty in-memory history.
func NewMemory() *Memory {
	return &Memory{cursor: -1}
}

// Push implements History.
func (m *Memory) Push(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.cursor+1], e)
	m.cursor = len(m.entries) - 1
}

// Replace implements History.
func (m *Memory) Replace(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		m.entries = append(m.entries, e)
		m.cursor = 0
		return
	}
	m.entries[m.cursor] = e
}

// Current implements History.
func (m *Memory) Current() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		return Entry{}, false
	}
	return m.entries[m.cursor], true
}

// Back moves the cursor one entry back and returns it.
func (m *Memory) Back() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor <= 0 {
		return Entry{}, ErrEdge
	}
	m.cursor--
	return m.entries[m.cursor], nil
}

// Forward moves the cursor one entry forward and returns it.
func (m *Memory) Forward() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor+1 >= len(m.entries) {
		return Entry{}, ErrEdge
	}
	m.cursor++
	return m.entries[m.cursor], nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

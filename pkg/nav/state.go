package nav

import (
	"sync"

	"github.com/strada-dev/strada/pkg/router"
	"github.com/strada-dev/strada/pkg/urltree"
)

// RouteState is one consistent snapshot of the current route: the URL, the
// activated snapshot tree, and the navigation that committed it.
type RouteState struct {
	// NavigationID identifies the navigation that wrote this state.
	NavigationID int64

	// URL is the committed URL tree.
	URL *urltree.Tree

	// Tree is the activated snapshot arena.
	Tree *router.SnapshotTree
}

// StateStore holds the current route state. It has exactly one writer — the
// Activating step of the navigation that reaches Completed — and any number
// of read-only subscribers, each receiving a consistent RouteState per
// committed transition.
type StateStore struct {
	mu      sync.RWMutex
	current *RouteState
	subs    map[int]chan RouteState
	nextSub int
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{subs: make(map[int]chan RouteState)}
}

// Current returns the latest committed route state, nil before the first
// completed navigation.
func (s *StateStore) Current() *RouteState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel receiving each committed state and a cancel
// function. Slow subscribers only ever lag to the most recent state: the
// channel holds one pending value and older pending values are dropped in
// favor of newer ones.
func (s *StateStore) Subscribe() (<-chan RouteState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan RouteState, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

// commit replaces the current state. Only the pipeline's activation step
// calls this.
func (s *StateStore) commit(state RouteState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &state
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			// Drop the stale pending value, keep the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

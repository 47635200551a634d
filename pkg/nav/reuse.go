package nav

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/strada-dev/strada/pkg/router"
)

// Handle is an instantiated route component as seen by the pipeline. The
// engine never looks inside; it only carries handles between activations and
// disposes them when they are displaced for good.
type Handle interface {
	// Dispose releases the handle. Called exactly once, when the handle
	// is destroyed rather than reused or detached.
	Dispose()
}

// Scope is the injection scope handed to the outlet factory for one node.
type Scope struct {
	// Parent is the handle of the parent node, nil at the top level.
	Parent Handle

	// Values carries scope data for the external instantiation system.
	Values map[string]any
}

// OutletFactory instantiates components for newly entered nodes. It is the
// boundary to the excluded component system: called exactly once per newly
// entered node, skipped entirely for reused nodes.
type OutletFactory interface {
	Instantiate(snap *router.Snapshot, scope Scope) Handle
}

// OutletFactoryFunc adapts a function to OutletFactory.
type OutletFactoryFunc func(snap *router.Snapshot, scope Scope) Handle

// Instantiate implements OutletFactory.
func (f OutletFactoryFunc) Instantiate(snap *router.Snapshot, scope Scope) Handle {
	return f(snap, scope)
}

// ReuseStrategy decides whether a previously instantiated node is kept or
// recreated across navigations. Strategies that retain detached handles own
// their lifetime: any handle not retrieved before being displaced must be
// disposed by the strategy.
type ReuseStrategy interface {
	// ShouldReuse reports whether the current node's handle can serve the
	// future node in place.
	ShouldReuse(future, current *router.Snapshot) bool

	// Store offers a displaced node's handle to the strategy. The
	// strategy either retains it for later Retrieve or disposes it.
	Store(node *router.Snapshot, h Handle)

	// Retrieve returns a previously stored handle for the future node,
	// or nil. A returned handle is removed from the store.
	Retrieve(future *router.Snapshot) Handle
}

// DefaultReuse reuses a node only when the route definition is identical and
// the params are equal: any param change recreates the node. It retains
// nothing; displaced handles are disposed immediately.
type DefaultReuse struct{}

// ShouldReuse implements ReuseStrategy.
func (DefaultReuse) ShouldReuse(future, current *router.Snapshot) bool {
	if future == nil || current == nil {
		return false
	}
	if future.Route != current.Route {
		return false
	}
	if len(future.Params) != len(current.Params) {
		return false
	}
	for k, v := range future.Params {
		if current.Params[k] != v {
			return false
		}
	}
	return true
}

// Store implements ReuseStrategy by disposing immediately.
func (DefaultReuse) Store(node *router.Snapshot, h Handle) {
	if h != nil {
		h.Dispose()
	}
}

// Retrieve implements ReuseStrategy; the default strategy retains nothing.
func (DefaultReuse) Retrieve(future *router.Snapshot) Handle { return nil }

// DetachedStore retains displaced handles keyed by route identity, for
// tab-like UIs that flip between routes without losing state. Retention is
// bounded by an LRU: an evicted handle is disposed, which keeps the
// leak-prevention responsibility inside the strategy.
type DetachedStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Handle]

	// retrieving marks a key whose removal hands the handle back to the
	// pipeline instead of disposing it. The evict callback runs
	// synchronously inside Add/Remove, under mu.
	retrieving string
}

// NewDetachedStore creates a store retaining at most size handles.
func NewDetachedStore(size int) (*DetachedStore, error) {
	s := &DetachedStore{}
	cache, err := lru.NewWithEvict[string, Handle](size, func(key string, h Handle) {
		if key == s.retrieving {
			return
		}
		if h != nil {
			h.Dispose()
		}
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// ShouldReuse matches the default in-place policy.
func (s *DetachedStore) ShouldReuse(future, current *router.Snapshot) bool {
	return DefaultReuse{}.ShouldReuse(future, current)
}

// Store retains the handle of routes carrying a reuse tag and disposes the
// rest.
func (s *DetachedStore) Store(node *router.Snapshot, h Handle) {
	if h == nil {
		return
	}
	key := reuseKey(node)
	if key == "" {
		h.Dispose()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Displacing an older handle under the same key goes through the
	// evict callback, which disposes it.
	s.cache.Add(key, h)
}

// Retrieve removes and returns the retained handle for the future node.
func (s *DetachedStore) Retrieve(future *router.Snapshot) Handle {
	key := reuseKey(future)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.cache.Peek(key)
	if !ok {
		return nil
	}
	s.retrieving = key
	s.cache.Remove(key)
	s.retrieving = ""
	return h
}

// Len returns the number of retained handles.
func (s *DetachedStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// Purge disposes every retained handle.
func (s *DetachedStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// reuseKey derives the retention key for a snapshot. Routes without a reuse
// tag are not retained.
func reuseKey(node *router.Snapshot) string {
	if node == nil || node.Route == nil || node.Route.Reuse == "" {
		return ""
	}
	return node.Route.Reuse + "|" + node.ConsumedPath()
}

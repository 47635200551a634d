package nav

import (
	"sync"
	"time"
)

// EventKind enumerates the lifecycle events of a navigation, in the order
// the state machine emits them.
type EventKind int

const (
	// EventStart fires when a navigation begins.
	EventStart EventKind = iota

	// EventRedirect fires once per redirect expansion, before the next
	// matching pass.
	EventRedirect

	// EventGuardsStart and EventGuardsEnd bracket guard evaluation.
	EventGuardsStart
	EventGuardsEnd

	// EventResolveStart and EventResolveEnd bracket data resolution.
	EventResolveStart
	EventResolveEnd

	// EventActivateStart and EventActivateEnd bracket activation.
	EventActivateStart
	EventActivateEnd

	// EventEnd fires when the navigation completes.
	EventEnd

	// EventCancel fires as the terminal event of a cancelled navigation.
	EventCancel

	// EventError fires as the terminal event of a failed navigation.
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventRedirect:
		return "redirect"
	case EventGuardsStart:
		return "guards-start"
	case EventGuardsEnd:
		return "guards-end"
	case EventResolveStart:
		return "resolve-start"
	case EventResolveEnd:
		return "resolve-end"
	case EventActivateStart:
		return "activate-start"
	case EventActivateEnd:
		return "activate-end"
	case EventEnd:
		return "end"
	case EventCancel:
		return "cancel"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification. For a given navigation id, events
// fire in exact state-machine order; a superseded navigation emits no
// further phase events after its Cancel.
type Event struct {
	// Kind is the lifecycle phase.
	Kind EventKind

	// NavigationID identifies the navigation the event belongs to.
	NavigationID int64

	// URL is the navigation's current target URL.
	URL string

	// RedirectTo is the expansion target, set on EventRedirect.
	RedirectTo string

	// Denied marks an EventGuardsEnd whose guards rejected the navigation.
	Denied bool

	// Reason is set on EventCancel.
	Reason CancelReason

	// Err is set on EventError.
	Err error

	// At is the emission time, from the pipeline clock.
	At time.Time
}

// Observer receives lifecycle events in emission order. Observers run on the
// emitting goroutine and must return quickly.
type Observer func(Event)

// Bus is the ordered lifecycle event stream. Observers are invoked
// synchronously in registration order, which preserves the per-navigation
// event ordering guarantee.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Observe registers an observer for all subsequent events.
func (b *Bus) Observe(fn Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// publish delivers an event to every observer.
func (b *Bus) publish(ev Event) {
	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()
	for _, fn := range observers {
		fn(ev)
	}
}

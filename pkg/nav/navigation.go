package nav

import (
	"context"
	"fmt"
	"sync"

	"github.com/strada-dev/strada/pkg/router"
	"github.com/strada-dev/strada/pkg/urltree"
)

// State is the navigation state machine position. Transitions only move
// forward: Idle, Matching, an optional Redirecting/Matching cycle,
// GuardsChecking, Resolving, Activating, then exactly one of the terminals.
type State int

const (
	StateIdle State = iota
	StateMatching
	StateRedirecting
	StateGuardsChecking
	StateResolving
	StateActivating
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateRedirecting:
		return "redirecting"
	case StateGuardsChecking:
		return "guards-checking"
	case StateResolving:
		return "resolving"
	case StateActivating:
		return "activating"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state is one of the three terminals.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Options configure one navigation.
type Options struct {
	// ReplaceHistory replaces the current history entry instead of pushing.
	ReplaceHistory bool

	// SkipLocationChange runs the navigation without writing history.
	SkipLocationChange bool

	// QueryHandling controls how the target's query combines with the
	// current URL's query.
	QueryHandling urltree.QueryHandling

	// SkipGuards bypasses guard evaluation. Match guards still apply.
	SkipGuards bool

	// State is an opaque value stored with the history entry.
	State any

	// Trigger records what started the navigation.
	Trigger router.Trigger
}

// Option mutates navigation Options.
type Option func(*Options)

// WithReplaceHistory replaces the current history entry instead of pushing.
func WithReplaceHistory() Option {
	return func(o *Options) { o.ReplaceHistory = true }
}

// WithSkipLocationChange navigates without touching history.
func WithSkipLocationChange() Option {
	return func(o *Options) { o.SkipLocationChange = true }
}

// WithQueryHandling sets the query combination mode.
func WithQueryHandling(h urltree.QueryHandling) Option {
	return func(o *Options) { o.QueryHandling = h }
}

// WithSkipGuards bypasses enter, enter-child, and leave guards.
func WithSkipGuards() Option {
	return func(o *Options) { o.SkipGuards = true }
}

// WithState attaches an opaque state value to the history entry.
func WithState(v any) Option {
	return func(o *Options) { o.State = v }
}

// WithTrigger overrides the recorded trigger.
func WithTrigger(t router.Trigger) Option {
	return func(o *Options) { o.Trigger = t }
}

// Navigation is one navigation attempt. It is created by the pipeline and
// settles in exactly one terminal state; Done unblocks when it does.
type Navigation struct {
	// ID is the monotonic navigation id. Higher ids supersede lower ones.
	ID int64

	// Source is the requested URL tree, before redirects.
	Source *urltree.Tree

	opts Options

	mu     sync.Mutex
	state  State
	final  *urltree.Tree
	tree   *router.SnapshotTree
	err    error
	reason CancelReason
	done   chan struct{}

	cancel context.CancelFunc
}

func newNavigation(id int64, source *urltree.Tree, opts Options, cancel context.CancelFunc) *Navigation {
	return &Navigation{
		ID:     id,
		Source: source,
		opts:   opts,
		state:  StateIdle,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// State returns the current state machine position.
func (n *Navigation) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Err returns the terminal error: nil for Completed, the failure for Failed,
// and the rejection or ErrSuperseded for Cancelled. Valid once Done closes.
func (n *Navigation) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Reason returns the cancellation reason, empty unless Cancelled.
func (n *Navigation) Reason() CancelReason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reason
}

// FinalURL returns the URL after redirect expansion, nil before matching
// settles.
func (n *Navigation) FinalURL() *urltree.Tree {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.final
}

// Tree returns the activated snapshot tree, nil unless Completed.
func (n *Navigation) Tree() *router.SnapshotTree {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tree
}

// Done returns a channel closed when the navigation reaches a terminal state.
func (n *Navigation) Done() <-chan struct{} { return n.done }

// Wait blocks until the navigation settles or the context expires, returning
// the terminal error.
func (n *Navigation) Wait(ctx context.Context) error {
	select {
	case <-n.done:
		return n.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setState advances the state machine. Transitions out of a terminal state
// are ignored, which makes supersession races harmless.
func (n *Navigation) setState(s State) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.Terminal() {
		return false
	}
	n.state = s
	return true
}

func (n *Navigation) setFinal(t *urltree.Tree) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.final = t
}

// settle moves the navigation into a terminal state exactly once and closes
// done. Returns false when another settle won the race.
func (n *Navigation) settle(s State, reason CancelReason, err error) bool {
	n.mu.Lock()
	if n.state.Terminal() {
		n.mu.Unlock()
		return false
	}
	n.state = s
	n.reason = reason
	n.err = err
	n.mu.Unlock()
	close(n.done)
	return true
}

func (n *Navigation) setTree(t *router.SnapshotTree) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tree = t
}

// info returns the guard-visible view of the navigation.
func (n *Navigation) info() router.NavInfo {
	n.mu.Lock()
	target := n.final
	n.mu.Unlock()
	if target == nil {
		target = n.Source
	}
	return router.NavInfo{ID: n.ID, Trigger: n.opts.Trigger, Target: target}
}

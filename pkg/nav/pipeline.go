package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/strada-dev/strada/pkg/history"
	"github.com/strada-dev/strada/pkg/router"
	"github.com/strada-dev/strada/pkg/urltree"
)

// Pipeline runs navigations against a route table: match, expand redirects,
// check guards, resolve data, activate. At most one navigation is current at
// a time; starting a new one supersedes the one in flight, which cancels
// cooperatively and emits a terminal Cancel event. Only a navigation that is
// still current when it reaches activation may mutate route state, so state
// and history always reflect a single winner.
type Pipeline struct {
	table    *router.Table
	bus      *Bus
	store    *StateStore
	hist     history.History
	strategy ReuseStrategy
	factory  OutletFactory
	resolver ResolverRunner
	guards   GuardEvaluator
	clock    clock.Clock
	log      *slog.Logger

	seq       atomic.Int64
	currentID atomic.Int64
	closed    atomic.Bool
	wg        sync.WaitGroup

	// mu guards the cancel handle of the in-flight navigation and the
	// committed activation state below it.
	mu           sync.Mutex
	cancelActive context.CancelFunc
	activeTree   *router.SnapshotTree
	handles      map[*router.Snapshot]Handle
}

// PipelineOption configures pipeline construction.
type PipelineOption func(*Pipeline)

// WithBus replaces the event bus.
func WithBus(b *Bus) PipelineOption {
	return func(p *Pipeline) { p.bus = b }
}

// WithHistory sets the session history the pipeline writes to.
func WithHistory(h history.History) PipelineOption {
	return func(p *Pipeline) { p.hist = h }
}

// WithReuseStrategy sets the component reuse policy.
func WithReuseStrategy(s ReuseStrategy) PipelineOption {
	return func(p *Pipeline) { p.strategy = s }
}

// WithOutletFactory sets the component instantiation boundary.
func WithOutletFactory(f OutletFactory) PipelineOption {
	return func(p *Pipeline) { p.factory = f }
}

// WithInherit sets the resolver data inheritance strategy.
func WithInherit(s InheritStrategy) PipelineOption {
	return func(p *Pipeline) { p.resolver.Inherit = s }
}

// WithClock overrides the event timestamp source.
func WithClock(c clock.Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// New creates a pipeline over a route table.
func New(table *router.Table, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		table:    table,
		bus:      NewBus(),
		store:    NewStateStore(),
		hist:     history.NewMemory(),
		strategy: DefaultReuse{},
		clock:    clock.New(),
		log:      slog.Default(),
		handles:  make(map[*router.Snapshot]Handle),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Events returns the lifecycle event bus.
func (p *Pipeline) Events() *Bus { return p.bus }

// States returns the committed route state store.
func (p *Pipeline) States() *StateStore { return p.store }

// Current returns the committed route state, nil before the first completed
// navigation.
func (p *Pipeline) Current() *RouteState { return p.store.Current() }

// History returns the session history.
func (p *Pipeline) History() history.History { return p.hist }

// Navigate starts a navigation to the given URL tree. It returns immediately
// with a handle; the navigation runs on its own goroutine and supersedes any
// navigation in flight.
func (p *Pipeline) Navigate(ctx context.Context, target *urltree.Tree, opts ...Option) (*Navigation, error) {
	return p.navigate(ctx, target, false, opts...)
}

// NavigateByURL parses a raw URL and navigates to it. A target that required
// canonicalization replaces the current history entry instead of pushing,
// so the cleaned URL does not create a second entry for the same location.
func (p *Pipeline) NavigateByURL(ctx context.Context, raw string, opts ...Option) (*Navigation, error) {
	_, _, changed, err := urltree.Canonicalize(raw)
	if err != nil {
		return nil, err
	}
	target, err := urltree.Parse(raw)
	if err != nil {
		return nil, err
	}
	return p.navigate(ctx, target, changed, opts...)
}

func (p *Pipeline) navigate(ctx context.Context, target *urltree.Tree, canonicalized bool, opts ...Option) (*Navigation, error) {
	if p.closed.Load() {
		return nil, ErrPipelineClosed
	}
	if target == nil {
		return nil, fmt.Errorf("nav: nil target")
	}

	o := Options{Trigger: router.TriggerImperative}
	for _, opt := range opts {
		opt(&o)
	}
	if canonicalized {
		o.ReplaceHistory = true
	}

	// Query handling combines the target's query with the committed URL's.
	if o.QueryHandling != urltree.QueryReplace {
		target = target.Clone()
		var current *urltree.Tree
		if s := p.store.Current(); s != nil {
			current = s.URL
		}
		if current != nil {
			target.Query = urltree.MergeQuery(current.Query, target.Query, o.QueryHandling)
		}
	}

	id := p.seq.Add(1)
	p.currentID.Store(id)

	// The navigation outlives the Navigate call; only supersession or Close
	// cancels it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	nav := newNavigation(id, target, o, cancel)

	p.mu.Lock()
	if p.cancelActive != nil {
		p.cancelActive()
	}
	p.cancelActive = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(runCtx, nav)
	return nav, nil
}

// Close supersedes any in-flight navigation, waits for it to settle, and
// disposes every live handle. Subsequent Navigate calls fail with
// ErrPipelineClosed.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.currentID.Store(-1)
	p.mu.Lock()
	if p.cancelActive != nil {
		p.cancelActive()
	}
	p.mu.Unlock()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for node, h := range p.handles {
		delete(p.handles, node)
		if h != nil {
			h.Dispose()
		}
	}
	return nil
}

// isCurrent reports whether the navigation still holds the currency token.
func (p *Pipeline) isCurrent(nav *Navigation) bool {
	return p.currentID.Load() == nav.ID
}

// emit publishes an event for a navigation that must still be current.
// Returns false after superseding the navigation instead of emitting.
func (p *Pipeline) emit(nav *Navigation, ev Event) bool {
	if !p.isCurrent(nav) {
		p.supersede(nav)
		return false
	}
	ev.NavigationID = nav.ID
	ev.At = p.clock.Now()
	p.bus.publish(ev)
	return true
}

// supersede emits a displaced navigation's terminal Cancel and settles it.
// The Cancel event is the one emission allowed after losing currency. The
// terminal publish precedes the settle so Done implies all events fired;
// only the navigation's own goroutine settles it, so the order is safe.
func (p *Pipeline) supersede(nav *Navigation) {
	nav.cancel()
	if nav.State().Terminal() {
		return
	}
	p.bus.publish(Event{
		Kind:         EventCancel,
		NavigationID: nav.ID,
		URL:          nav.Source.String(),
		Reason:       CancelSuperseded,
		At:           p.clock.Now(),
	})
	p.log.Debug("navigation superseded", "id", nav.ID, "url", nav.Source.String())
	nav.settle(StateCancelled, CancelSuperseded, ErrSuperseded)
}

// fail emits a navigation's Error event and settles it in the Failed state.
func (p *Pipeline) fail(nav *Navigation, url string, err error) {
	if nav.State().Terminal() {
		return
	}
	p.bus.publish(Event{
		Kind:         EventError,
		NavigationID: nav.ID,
		URL:          url,
		Err:          err,
		At:           p.clock.Now(),
	})
	p.log.Warn("navigation failed", "id", nav.ID, "url", url, "err", err)
	nav.settle(StateFailed, "", err)
}

// reject emits a guard-rejected navigation's Cancel event and settles it.
func (p *Pipeline) reject(nav *Navigation, url string, rejection *GuardRejectedError) {
	if nav.State().Terminal() {
		return
	}
	p.bus.publish(Event{
		Kind:         EventCancel,
		NavigationID: nav.ID,
		URL:          url,
		Reason:       CancelGuardRejected,
		Err:          rejection,
		At:           p.clock.Now(),
	})
	p.log.Info("navigation rejected by guard", "id", nav.ID, "url", url, "guard", rejection.Guard)
	nav.settle(StateCancelled, CancelGuardRejected, rejection)
}

// run drives one navigation through the state machine.
func (p *Pipeline) run(ctx context.Context, nav *Navigation) {
	defer p.wg.Done()
	defer nav.cancel()

	target := nav.Source
	if !p.emit(nav, Event{Kind: EventStart, URL: target.String()}) {
		return
	}

	var future *router.SnapshotTree
	var d *treeDiff
	hops := 0

	// Matching and guard checking cycle through redirects. Every hop,
	// whether from a redirect route, a match guard, or an enter guard,
	// counts against the same bound.
	for {
		if !nav.setState(StateMatching) {
			return
		}

		mt, err := p.table.Match(ctx, target)
		if err != nil {
			var re *router.RedirectError
			if errors.As(err, &re) {
				next, ok := p.hop(nav, target, re.Tree, &hops)
				if !ok {
					return
				}
				target = next
				continue
			}
			if errors.Is(err, router.ErrNoMatch) {
				if ctx.Err() != nil && !p.isCurrent(nav) {
					p.supersede(nav)
					return
				}
				p.fail(nav, target.String(), fmt.Errorf("%w: %s", ErrNotFound, target.Path()))
				return
			}
			if ctx.Err() != nil && !p.isCurrent(nav) {
				p.supersede(nav)
				return
			}
			p.fail(nav, target.String(), err)
			return
		}

		if node, prefix, ok := mt.FirstRedirect(); ok {
			next, err := p.table.ExpandRedirect(ctx, node, prefix, target)
			if err != nil {
				p.fail(nav, target.String(), err)
				return
			}
			next, ok2 := p.hop(nav, target, next, &hops)
			if !ok2 {
				return
			}
			target = next
			continue
		}

		nav.setFinal(mt.Source)
		future = router.NewSnapshotTree(mt)

		if nav.opts.SkipGuards {
			break
		}

		if !nav.setState(StateGuardsChecking) {
			return
		}
		if !p.emit(nav, Event{Kind: EventGuardsStart, URL: target.String()}) {
			return
		}

		p.mu.Lock()
		active := p.activeTree
		p.mu.Unlock()
		d = diffTrees(future, active, p.strategy)

		outcome := p.guards.Evaluate(ctx, nav.info(), future, d)
		if ctx.Err() != nil && !p.isCurrent(nav) {
			p.supersede(nav)
			return
		}

		if outcome.Allowed() {
			if !p.emit(nav, Event{Kind: EventGuardsEnd, URL: target.String()}) {
				return
			}
			break
		}

		if !p.emit(nav, Event{Kind: EventGuardsEnd, URL: target.String(), Denied: true}) {
			return
		}

		if outcome.Redirect != nil {
			next, ok := p.hop(nav, target, outcome.Redirect, &hops)
			if !ok {
				return
			}
			target = next
			continue
		}

		p.reject(nav, target.String(), outcome.Rejection)
		return
	}

	// Resolving. Only newly entered nodes run resolvers; reused nodes keep
	// the data they resolved on first activation, copied onto the future
	// snapshot so entered descendants still inherit it. Every resolver
	// settles before activation; the first failure terminates the
	// navigation without touching route state.
	if d == nil {
		p.mu.Lock()
		active := p.activeTree
		p.mu.Unlock()
		d = diffTrees(future, active, p.strategy)
	}
	for _, pair := range d.reused {
		carryData(pair.future, pair.current)
	}
	if !nav.setState(StateResolving) {
		return
	}
	if !p.emit(nav, Event{Kind: EventResolveStart, URL: target.String()}) {
		return
	}
	if err := p.resolver.Run(ctx, future, d.enteredSet()); err != nil {
		if ctx.Err() != nil && !p.isCurrent(nav) {
			p.supersede(nav)
			return
		}
		p.fail(nav, target.String(), err)
		return
	}
	if !p.emit(nav, Event{Kind: EventResolveEnd, URL: target.String()}) {
		return
	}

	// Activating. The commit runs under the pipeline lock with a final
	// currency check, so a superseded navigation can never write state.
	if !nav.setState(StateActivating) {
		return
	}
	if !p.emit(nav, Event{Kind: EventActivateStart, URL: target.String()}) {
		return
	}

	p.mu.Lock()
	if !p.isCurrent(nav) {
		p.mu.Unlock()
		p.supersede(nav)
		return
	}
	p.activate(future)
	p.store.commit(RouteState{NavigationID: nav.ID, URL: target, Tree: future})
	if !nav.opts.SkipLocationChange {
		entry := history.Entry{URL: target.String(), State: nav.opts.State}
		if nav.opts.ReplaceHistory {
			p.hist.Replace(entry)
		} else {
			p.hist.Push(entry)
		}
	}
	p.mu.Unlock()

	// The commit happened while current, so the navigation completes even
	// if a newer one starts during these final emissions.
	nav.setTree(future)
	p.bus.publish(Event{
		Kind:         EventActivateEnd,
		NavigationID: nav.ID,
		URL:          target.String(),
		At:           p.clock.Now(),
	})
	p.bus.publish(Event{
		Kind:         EventEnd,
		NavigationID: nav.ID,
		URL:          target.String(),
		At:           p.clock.Now(),
	})
	p.log.Debug("navigation completed", "id", nav.ID, "url", target.String(), "redirects", hops)
	nav.settle(StateCompleted, "", nil)
}

// hop records one redirect expansion: bounds the chain, inherits query and
// fragment, and emits the Redirect event.
func (p *Pipeline) hop(nav *Navigation, from, to *urltree.Tree, hops *int) (*urltree.Tree, bool) {
	*hops++
	if *hops > p.table.MaxRedirects() {
		p.fail(nav, from.String(), fmt.Errorf("%w: %d redirects from %s", ErrRedirectLoop, *hops, nav.Source.Path()))
		return nil, false
	}
	next := to.Clone()
	if next.Query == nil && from.Query != nil {
		next.Query = from.Clone().Query
	}
	if next.Fragment == "" {
		next.Fragment = from.Fragment
	}
	if !nav.setState(StateRedirecting) {
		return nil, false
	}
	nav.setFinal(next)
	if !p.emit(nav, Event{Kind: EventRedirect, URL: from.String(), RedirectTo: next.String()}) {
		return nil, false
	}
	return next, true
}

// activate swaps the committed tree for the future one: displaced handles go
// to the reuse strategy, reused handles carry over, and the factory
// instantiates each newly entered node exactly once, parents before children.
// Callers hold p.mu.
func (p *Pipeline) activate(future *router.SnapshotTree) {
	d := diffTrees(future, p.activeTree, p.strategy)
	next := make(map[*router.Snapshot]Handle, len(d.reused)+len(d.entered))

	for _, node := range d.destroyed {
		h := p.handles[node]
		delete(p.handles, node)
		p.strategy.Store(node, h)
	}
	for _, pair := range d.reused {
		next[pair.future] = p.handles[pair.current]
		delete(p.handles, pair.current)
	}
	// entered is depth-first, so a parent's handle exists before its
	// children ask for it in their scope.
	for _, node := range d.entered {
		h := p.strategy.Retrieve(node)
		if h == nil && p.factory != nil {
			scope := Scope{}
			if parent := node.Parent(); parent != nil {
				scope.Parent = next[parent]
			}
			h = p.factory.Instantiate(node, scope)
		}
		next[node] = h
	}

	p.handles = next
	p.activeTree = future
}

// Handle returns the live handle for an activated snapshot, nil when the
// node has none or is no longer active.
func (p *Pipeline) Handle(node *router.Snapshot) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[node]
}

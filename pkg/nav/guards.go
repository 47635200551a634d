package nav

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/strada-dev/strada/pkg/router"
	"github.com/strada-dev/strada/pkg/urltree"
)

// GuardOutcome is the aggregate decision of one guard-checking phase.
// Exactly one of the three shapes holds: allowed, redirected, or rejected.
type GuardOutcome struct {
	// Redirect restarts the navigation at this tree when non-nil.
	Redirect *urltree.Tree

	// Rejection carries the denying guard when non-nil.
	Rejection *GuardRejectedError
}

// Allowed reports whether every guard permitted the navigation.
func (o GuardOutcome) Allowed() bool {
	return o.Redirect == nil && o.Rejection == nil
}

// errGuardStop cancels sibling guard chains once one chain has decided.
var errGuardStop = errors.New("nav: guard chain stopped")

// GuardEvaluator runs leave, enter-child, and enter guards against the diff
// between the current and future snapshot trees. Ordering: leave guards on
// destroyed nodes deepest first, then enter-child guards once per subtree
// that gains a node, then enter guards root to leaf. Independent entered
// subtrees check their enter chains concurrently; the first deny or redirect
// cancels the rest.
type GuardEvaluator struct{}

// Evaluate runs the full guard phase for one navigation.
func (GuardEvaluator) Evaluate(ctx context.Context, nav router.NavInfo, future *router.SnapshotTree, d *treeDiff) GuardOutcome {
	// Leave guards run against the nodes being torn down, children first,
	// so a child can veto before its parent is asked.
	for _, node := range d.destroyed {
		for _, g := range node.Route.Guards {
			if g.Kind != router.GuardLeave {
				continue
			}
			if out := runGuard(ctx, g, node, nav); !out.Allowed() {
				return out
			}
		}
	}

	entered := d.enteredSet()

	// Enter-child guards fire once per guarded subtree that gains at least
	// one node, regardless of how deep the new node sits.
	for _, node := range future.Nodes() {
		if !hasEnteredDescendant(node, entered) {
			continue
		}
		for _, g := range node.Route.Guards {
			if g.Kind != router.GuardEnterChild {
				continue
			}
			if out := runGuard(ctx, g, node, nav); !out.Allowed() {
				return out
			}
		}
	}

	// Enter guards run root to leaf within each newly entered subtree;
	// disjoint subtrees run concurrently.
	var roots []*router.Snapshot
	for _, n := range d.entered {
		if n.Parent() == nil || !entered[n.Parent()] {
			roots = append(roots, n)
		}
	}

	var (
		mu      sync.Mutex
		decided GuardOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		g.Go(func() error {
			return enterChain(gctx, root, nav, func(out GuardOutcome) {
				mu.Lock()
				if decided.Allowed() {
					decided = out
				}
				mu.Unlock()
			})
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errGuardStop) {
		return GuardOutcome{Rejection: &GuardRejectedError{
			Guard: "enter-chain",
			Kind:  router.GuardEnter,
			Cause: err,
		}}
	}
	return decided
}

// enterChain walks a subtree depth first running enter guards, reporting the
// first non-allow decision and stopping the chain.
func enterChain(ctx context.Context, node *router.Snapshot, nav router.NavInfo, decide func(GuardOutcome)) error {
	for _, g := range node.Route.Guards {
		if g.Kind != router.GuardEnter {
			continue
		}
		if out := runGuard(ctx, g, node, nav); !out.Allowed() {
			decide(out)
			return errGuardStop
		}
	}
	for _, c := range node.Children() {
		if err := enterChain(ctx, c, nav, decide); err != nil {
			return err
		}
	}
	return nil
}

// runGuard executes one guard and normalizes its result. Panics surface from
// Guard.Check as *router.UnexpectedError and become unexpected rejections.
func runGuard(ctx context.Context, g router.Guard, snap *router.Snapshot, nav router.NavInfo) GuardOutcome {
	res, err := g.Check(ctx, snap, nav)
	if err != nil {
		var ue *router.UnexpectedError
		return GuardOutcome{Rejection: &GuardRejectedError{
			Guard:      g.Name,
			Kind:       g.Kind,
			Node:       snap,
			Unexpected: errors.As(err, &ue),
			Cause:      err,
		}}
	}
	if tree, ok := res.RedirectTree(); ok {
		return GuardOutcome{Redirect: tree}
	}
	if res.Denied() {
		return GuardOutcome{Rejection: &GuardRejectedError{
			Guard: g.Name,
			Kind:  g.Kind,
			Node:  snap,
		}}
	}
	return GuardOutcome{}
}

// hasEnteredDescendant reports whether any strict descendant of node is newly
// entered.
func hasEnteredDescendant(node *router.Snapshot, entered map[*router.Snapshot]bool) bool {
	for _, c := range node.Children() {
		if entered[c] || hasEnteredDescendant(c, entered) {
			return true
		}
	}
	return false
}

package nav

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/strada-dev/strada/pkg/router"
)

// InheritStrategy controls how resolved data flows from parent snapshots to
// their children.
type InheritStrategy int

const (
	// InheritEmptyPathOnly passes parent data down only through empty-path
	// or componentless parents. This is the default.
	InheritEmptyPathOnly InheritStrategy = iota

	// InheritAlways passes parent data down every edge.
	InheritAlways
)

// ResolverRunner executes the resolvers of a snapshot tree before
// activation. Nodes at the same depth resolve concurrently, as do the keys
// within a node; depths run in order so children observe their parents'
// resolved data. All resolvers must settle before activation proceeds; the
// first failure cancels the rest and fails the navigation.
type ResolverRunner struct {
	// Inherit selects the parent-to-child data flow.
	Inherit InheritStrategy
}

// Run resolves the tree's newly entered nodes, merging results into each
// snapshot's Data. A nil entered set resolves every node. Reused nodes keep
// the data they resolved when they first activated and are skipped.
func (r ResolverRunner) Run(ctx context.Context, tree *router.SnapshotTree, entered map[*router.Snapshot]bool) error {
	level := tree.Root.Children()
	for len(level) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for _, node := range level {
			if entered != nil && !entered[node] {
				continue
			}
			g.Go(func() error {
				r.inherit(node)
				return resolveNode(gctx, node)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var next []*router.Snapshot
		for _, node := range level {
			next = append(next, node.Children()...)
		}
		level = next
	}
	return nil
}

// inherit merges the parent's data into the node per the strategy. The
// node's own keys win.
func (r ResolverRunner) inherit(node *router.Snapshot) {
	parent := node.Parent()
	if parent == nil || parent.Route == nil || parent.Data == nil {
		return
	}
	if r.Inherit == InheritEmptyPathOnly &&
		parent.Route.Path != "" && parent.Route.Component != "" {
		return
	}
	if node.Data == nil {
		node.Data = make(map[string]any, len(parent.Data))
	}
	for k, v := range parent.Data {
		if _, ok := node.Data[k]; !ok {
			node.Data[k] = v
		}
	}
}

// carryData copies a reused node's data onto its future snapshot, so entered
// descendants still inherit the values resolved on first activation. The
// future node's own keys win.
func carryData(future, current *router.Snapshot) {
	if len(current.Data) == 0 {
		return
	}
	if future.Data == nil {
		future.Data = make(map[string]any, len(current.Data))
	}
	for k, v := range current.Data {
		if _, ok := future.Data[k]; !ok {
			future.Data[k] = v
		}
	}
}

// resolveNode runs every resolver of one snapshot concurrently and merges
// the values under the node's keys.
func resolveNode(ctx context.Context, node *router.Snapshot) error {
	if len(node.Route.Resolve) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for key, fn := range node.Route.Resolve {
		g.Go(func() error {
			value, err := runResolver(gctx, key, fn, node)
			if err != nil {
				return err
			}
			mu.Lock()
			if node.Data == nil {
				node.Data = make(map[string]any)
			}
			node.Data[key] = value
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// runResolver invokes one resolver with panic recovery. A panic or error
// surfaces as a *ResolverError naming the key and node.
func runResolver(ctx context.Context, key string, fn router.Resolver, node *router.Snapshot) (value any, err error) {
	defer func() {
		if v := recover(); v != nil {
			value = nil
			err = &ResolverError{
				Key:        key,
				Node:       node,
				Unexpected: true,
				Cause:      &router.UnexpectedError{Stage: "resolver", Name: key, Value: v},
			}
		}
	}()
	value, rerr := fn(ctx, node)
	if rerr != nil {
		return nil, &ResolverError{Key: key, Node: node, Cause: rerr}
	}
	return value, nil
}

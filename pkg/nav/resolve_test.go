package nav

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/strada-dev/strada/pkg/router"
)

func staticResolver(v any) router.Resolver {
	return func(ctx context.Context, snap *router.Snapshot) (any, error) {
		return v, nil
	}
}

func TestResolveMergesIntoData(t *testing.T) {
	table := router.MustTable([]*router.Route{
		{Path: "items/:id", Component: "Item",
			Data: map[string]any{"static": "yes"},
			Resolve: map[string]router.Resolver{
				"item": func(ctx context.Context, snap *router.Snapshot) (any, error) {
					return "item-" + snap.Param("id"), nil
				},
				"count": staticResolver(3),
			}},
	})
	tree := snapshotTreeFor(t, table, "/items/42")

	if err := (ResolverRunner{}).Run(context.Background(), tree, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	leaf := tree.PrimaryLeaf()
	if leaf.Data["item"] != "item-42" {
		t.Errorf("item = %v", leaf.Data["item"])
	}
	if leaf.Data["count"] != 3 {
		t.Errorf("count = %v", leaf.Data["count"])
	}
	if leaf.Data["static"] != "yes" {
		t.Errorf("static data lost: %v", leaf.Data)
	}
}

func TestResolveChildSeesParentDataThroughEmptyPath(t *testing.T) {
	table := router.MustTable([]*router.Route{
		{Path: "shop", Component: "",
			Resolve: map[string]router.Resolver{"cart": staticResolver("cart")},
			Children: []*router.Route{
				{Path: "checkout", Component: "Checkout"},
			}},
	})
	tree := snapshotTreeFor(t, table, "/shop/checkout")

	if err := (ResolverRunner{}).Run(context.Background(), tree, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	leaf := tree.PrimaryLeaf()
	if leaf.Data["cart"] != "cart" {
		t.Errorf("componentless parent data should flow down, got %v", leaf.Data)
	}
}

func TestResolveInheritanceStrategies(t *testing.T) {
	routes := []*router.Route{
		{Path: "parent", Component: "Parent",
			Resolve: map[string]router.Resolver{"token": staticResolver("t")},
			Children: []*router.Route{
				{Path: "child", Component: "Child"},
			}},
	}

	table := router.MustTable(routes)

	// Default: a componentful parent does not pass data down.
	tree := snapshotTreeFor(t, table, "/parent/child")
	if err := (ResolverRunner{}).Run(context.Background(), tree, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := tree.PrimaryLeaf().Data["token"]; ok {
		t.Error("default inheritance leaked through a componentful parent")
	}

	// InheritAlways passes data down every edge.
	tree = snapshotTreeFor(t, table, "/parent/child")
	if err := (ResolverRunner{Inherit: InheritAlways}).Run(context.Background(), tree, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tree.PrimaryLeaf().Data["token"] != "t" {
		t.Errorf("InheritAlways should pass data down, got %v", tree.PrimaryLeaf().Data)
	}
}

func TestResolveChildKeyWinsOverInherited(t *testing.T) {
	table := router.MustTable([]*router.Route{
		{Path: "a", Component: "",
			Resolve: map[string]router.Resolver{"v": staticResolver("parent")},
			Children: []*router.Route{
				{Path: "b", Component: "B",
					Resolve: map[string]router.Resolver{"v": staticResolver("child")}},
			}},
	})
	tree := snapshotTreeFor(t, table, "/a/b")

	if err := (ResolverRunner{}).Run(context.Background(), tree, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tree.PrimaryLeaf().Data["v"]; got != "child" {
		t.Errorf("v = %v, want the child's own value", got)
	}
}

func TestResolveSkipsNodesOutsideEnteredSet(t *testing.T) {
	var runs atomic.Int32
	table := router.MustTable([]*router.Route{
		{Path: "items/:id", Component: "Item",
			Resolve: map[string]router.Resolver{
				"item": func(ctx context.Context, snap *router.Snapshot) (any, error) {
					runs.Add(1)
					return "item-" + snap.Param("id"), nil
				},
			}},
	})

	current := snapshotTreeFor(t, table, "/items/7")
	if err := (ResolverRunner{}).Run(context.Background(), current, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	future := snapshotTreeFor(t, table, "/items/7")
	d := diffTrees(future, current, DefaultReuse{})
	if len(d.entered) != 0 {
		t.Fatalf("entered %d nodes, want everything reused", len(d.entered))
	}
	for _, pair := range d.reused {
		carryData(pair.future, pair.current)
	}
	if err := (ResolverRunner{}).Run(context.Background(), future, d.enteredSet()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := runs.Load(); got != 1 {
		t.Errorf("resolver runs = %d, want 1", got)
	}
	if got := future.PrimaryLeaf().Data["item"]; got != "item-7" {
		t.Errorf("carried data = %v, want item-7", got)
	}
}

func TestResolveFailureNamesKeyAndNode(t *testing.T) {
	boom := errors.New("boom")
	table := router.MustTable([]*router.Route{
		{Path: "x", Component: "X",
			Resolve: map[string]router.Resolver{
				"ok": staticResolver(1),
				"bad": func(ctx context.Context, snap *router.Snapshot) (any, error) {
					return nil, boom
				},
			}},
	})
	tree := snapshotTreeFor(t, table, "/x")

	err := (ResolverRunner{}).Run(context.Background(), tree, nil)
	var rerr *ResolverError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want ResolverError", err)
	}
	if rerr.Key != "bad" || !errors.Is(rerr, boom) {
		t.Errorf("rerr = %+v", rerr)
	}
	if rerr.Node == nil || rerr.Node.Route.Component != "X" {
		t.Errorf("node = %v, want the X snapshot", rerr.Node)
	}
}

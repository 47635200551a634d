package router

import (
	"context"
	"errors"
	"testing"

	"github.com/strada-dev/strada/pkg/urltree"
)

func mustMatch(t *testing.T, table *Table, path string) *MatchTree {
	t.Helper()
	mt, err := table.Match(context.Background(), urltree.MustParse(path))
	if err != nil {
		t.Fatalf("Match(%q): %v", path, err)
	}
	return mt
}

func primaryLeaf(mt *MatchTree) *MatchNode {
	n := mt.Root
	var leaf *MatchNode
	for {
		var next *MatchNode
		for _, c := range n.Children {
			if c.Outlet == OutletPrimary {
				next = c
				break
			}
		}
		if next == nil {
			return leaf
		}
		leaf = next
		n = next
	}
}

func TestMatchLiteral(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "users", Component: "Users"},
	})
	mt := mustMatch(t, table, "/users")
	if leaf := primaryLeaf(mt); leaf.Route.Component != "Users" {
		t.Errorf("component = %q, want Users", leaf.Route.Component)
	}
}

func TestMatchParams(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "users/:id", Component: "User"},
	})
	mt := mustMatch(t, table, "/users/42")
	if got := primaryLeaf(mt).Params["id"]; got != "42" {
		t.Errorf("id = %q, want 42", got)
	}
}

func TestMatchOptionalParam(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "report/:year/:month?", Component: "Report"},
	})

	mt := mustMatch(t, table, "/report/2026/08")
	leaf := primaryLeaf(mt)
	if leaf.Params["year"] != "2026" || leaf.Params["month"] != "08" {
		t.Errorf("params = %v", leaf.Params)
	}

	mt = mustMatch(t, table, "/report/2026")
	leaf = primaryLeaf(mt)
	if leaf.Params["year"] != "2026" {
		t.Errorf("params = %v", leaf.Params)
	}
	if _, ok := leaf.Params["month"]; ok {
		t.Error("month should be absent when the segment is skipped")
	}
}

func TestMatchWildcardCapturesRemainingPath(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "x", Component: "X"},
		{Path: "**", Component: "NotFound"},
	})
	mt := mustMatch(t, table, "/unknown/path")
	leaf := primaryLeaf(mt)
	if leaf.Route.Component != "NotFound" {
		t.Fatalf("component = %q, want NotFound", leaf.Route.Component)
	}
	if len(leaf.Params) != 0 {
		t.Errorf("wildcard params = %v, want none", leaf.Params)
	}
	if got := leaf.ConsumedPath(); got != "unknown/path" {
		t.Errorf("consumed path = %q, want unknown/path", got)
	}
}

func TestMatchDeclarationOrderWins(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "users/:id", Component: "First"},
		{Path: "users/admin", Component: "Second"},
	})
	mt := mustMatch(t, table, "/users/admin")
	if got := primaryLeaf(mt).Route.Component; got != "First" {
		t.Errorf("component = %q, want First (declaration order)", got)
	}
}

func TestMatchBacktracksWhenChildrenFail(t *testing.T) {
	// The first parent matches "a" but has no child for "deep", so the
	// matcher must fall through to the sibling.
	table := MustTable([]*Route{
		{Path: "a", Component: "Shallow", Children: []*Route{
			{Path: "b", Component: "B"},
		}},
		{Path: "a/deep", Component: "Deep"},
	})
	mt := mustMatch(t, table, "/a/deep")
	if got := primaryLeaf(mt).Route.Component; got != "Deep" {
		t.Errorf("component = %q, want Deep", got)
	}
}

func TestMatchNested(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "shop", Component: "Shop", Children: []*Route{
			{Path: "items/:sku", Component: "Item"},
		}},
	})
	mt := mustMatch(t, table, "/shop/items/abc-1")
	nodes := mt.Flatten()
	if len(nodes) != 2 {
		t.Fatalf("flatten = %d nodes, want 2", len(nodes))
	}
	if nodes[1].Params["sku"] != "abc-1" {
		t.Errorf("sku = %q", nodes[1].Params["sku"])
	}
}

func TestMatchMatrixParamsMergeWithoutAffectingStructure(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "users/:id", Component: "User"},
	})
	mt := mustMatch(t, table, "/users;view=compact/42;tab=posts")
	leaf := primaryLeaf(mt)
	if leaf.Params["id"] != "42" {
		t.Errorf("id = %q", leaf.Params["id"])
	}
	if leaf.Params["view"] != "compact" || leaf.Params["tab"] != "posts" {
		t.Errorf("matrix params missing: %v", leaf.Params)
	}
}

func TestMatchCustomMatcher(t *testing.T) {
	table := MustTable([]*Route{
		{
			Component: "Hex",
			Matcher: func(ctx context.Context, segments []urltree.Segment, route *Route) (*MatcherResult, bool) {
				if len(segments) == 0 || segments[0].Path != "0x2a" {
					return nil, false
				}
				return &MatcherResult{Consumed: 1, Params: map[string]string{"hex": segments[0].Path}}, true
			},
		},
		{Path: "**", Component: "Fallback"},
	})

	mt := mustMatch(t, table, "/0x2a")
	leaf := primaryLeaf(mt)
	if leaf.Route.Component != "Hex" || leaf.Params["hex"] != "0x2a" {
		t.Errorf("leaf = %q params %v", leaf.Route.Component, leaf.Params)
	}

	mt = mustMatch(t, table, "/other")
	if got := primaryLeaf(mt).Route.Component; got != "Fallback" {
		t.Errorf("component = %q, want Fallback", got)
	}
}

func TestMatchCustomMatcherPanicIsUnexpected(t *testing.T) {
	table := MustTable([]*Route{
		{
			Component: "Boom",
			Matcher: func(ctx context.Context, segments []urltree.Segment, route *Route) (*MatcherResult, bool) {
				panic("matcher bug")
			},
		},
	})
	_, err := table.Match(context.Background(), urltree.MustParse("/x"))
	var unexpected *UnexpectedError
	if !errors.As(err, &unexpected) {
		t.Fatalf("err = %v, want *UnexpectedError", err)
	}
	if unexpected.Stage != "matcher" {
		t.Errorf("stage = %q", unexpected.Stage)
	}
}

func TestMatchGuardDenyTriesNextCandidate(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "feature", Component: "New", Guards: []Guard{
			CanMatch("flag-off", func(ctx context.Context, route *Route, segments []urltree.Segment) (GuardResult, error) {
				return Deny(), nil
			}),
		}},
		{Path: "feature", Component: "Old"},
	})
	mt := mustMatch(t, table, "/feature")
	if got := primaryLeaf(mt).Route.Component; got != "Old" {
		t.Errorf("component = %q, want Old", got)
	}
}

func TestMatchGuardRedirect(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "beta", Component: "Beta", Guards: []Guard{
			CanMatch("send-away", func(ctx context.Context, route *Route, segments []urltree.Segment) (GuardResult, error) {
				return RedirectTo("/stable"), nil
			}),
		}},
	})
	_, err := table.Match(context.Background(), urltree.MustParse("/beta"))
	var redirect *RedirectError
	if !errors.As(err, &redirect) {
		t.Fatalf("err = %v, want *RedirectError", err)
	}
	if got := redirect.Tree.Path(); got != "/stable" {
		t.Errorf("redirect target = %q", got)
	}
}

func TestMatchNoMatch(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "users", Component: "Users"},
	})
	_, err := table.Match(context.Background(), urltree.MustParse("/projects"))
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
}

func TestMatchNamedOutlet(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "inbox", Component: "Inbox"},
		{Path: "", Outlet: "sidebar", Component: "Sidebar"},
	})
	mt := mustMatch(t, table, "/inbox")
	if len(mt.Root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(mt.Root.Children))
	}
	var sidebar *MatchNode
	for _, c := range mt.Root.Children {
		if c.Outlet == "sidebar" {
			sidebar = c
		}
	}
	if sidebar == nil || sidebar.Route.Component != "Sidebar" {
		t.Error("sidebar outlet not matched")
	}
}

func TestMatchDeterministic(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "a/:x", Component: "A", Children: []*Route{
			{Path: ":y?", Component: "B"},
		}},
		{Path: "**", Component: "W"},
	})
	tree := urltree.MustParse("/a/1/2?q=1")

	first := mustMatch(t, table, tree.String())
	second := mustMatch(t, table, tree.String())

	a, b := first.Flatten(), second.Flatten()
	if len(a) != len(b) {
		t.Fatalf("node counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Route != b[i].Route {
			t.Errorf("node %d routes differ", i)
		}
		if a[i].ConsumedPath() != b[i].ConsumedPath() {
			t.Errorf("node %d consumed %q vs %q", i, a[i].ConsumedPath(), b[i].ConsumedPath())
		}
		for k, v := range a[i].Params {
			if b[i].Params[k] != v {
				t.Errorf("node %d param %q: %q vs %q", i, k, v, b[i].Params[k])
			}
		}
	}
}

func TestMatchEmptyPathParentWithChildren(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "", Component: "Shell", Children: []*Route{
			{Path: "home", Component: "Home"},
		}},
	})
	mt := mustMatch(t, table, "/home")
	nodes := mt.Flatten()
	if len(nodes) != 2 || nodes[0].Route.Component != "Shell" || nodes[1].Route.Component != "Home" {
		t.Errorf("unexpected match chain: %v", nodes)
	}
}

func TestMatchPathMatchFull(t *testing.T) {
	table := MustTable([]*Route{
		{Path: "docs", PathMatch: PathMatchFull, Component: "DocsHome"},
		{Path: "docs", Component: "Docs", Children: []*Route{
			{Path: ":page", Component: "DocPage"},
		}},
	})
	mt := mustMatch(t, table, "/docs")
	if got := primaryLeaf(mt).Route.Component; got != "DocsHome" {
		t.Errorf("component = %q, want DocsHome", got)
	}
	mt = mustMatch(t, table, "/docs/intro")
	if got := primaryLeaf(mt).Route.Component; got != "DocPage" {
		t.Errorf("component = %q, want DocPage", got)
	}
}

package router

import (
	"context"
	"errors"
	"testing"

	"github.com/strada-dev/strada/pkg/urltree"
)

func TestNewTableRejectsWildcardNotLast(t *testing.T) {
	_, err := NewTable([]*Route{{Path: "**/tail", Component: "X"}})
	var cfg *ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
}

func TestNewTableRejectsRequiredAfterOptional(t *testing.T) {
	_, err := NewTable([]*Route{{Path: "a/:b?/c", Component: "X"}})
	if err == nil {
		t.Fatal("expected error for required segment after optional")
	}
}

func TestNewTableRejectsWildcardWithChildren(t *testing.T) {
	_, err := NewTable([]*Route{{Path: "**", Children: []*Route{{Path: "x"}}}})
	if err == nil {
		t.Fatal("expected error for wildcard with children")
	}
}

func TestNewTableRejectsRedirectWithChildren(t *testing.T) {
	_, err := NewTable([]*Route{{Path: "old", RedirectTo: "/new", Children: []*Route{{Path: "x"}}}})
	if err == nil {
		t.Fatal("expected error for redirect with children")
	}
}

func TestNewTableRejectsBothRedirectForms(t *testing.T) {
	_, err := NewTable([]*Route{{
		Path:       "old",
		RedirectTo: "/new",
		RedirectFunc: func(ctx context.Context, m *MatchNode) (*urltree.Tree, error) {
			return nil, nil
		},
	}})
	if err == nil {
		t.Fatal("expected error for RedirectTo plus RedirectFunc")
	}
}

func TestNewTableRootPrefixRedirectRequiresOptIn(t *testing.T) {
	routes := []*Route{{Path: "", RedirectTo: "/home", PathMatch: PathMatchPrefix}}
	if _, err := NewTable(routes); err == nil {
		t.Fatal("expected error without AllowRootPrefix")
	}

	routes[0].AllowRootPrefix = true
	if _, err := NewTable(routes); err != nil {
		t.Fatalf("opt-in should be accepted: %v", err)
	}
}

func TestEmptyPathRedirectDefaultsToFullMatch(t *testing.T) {
	// Without the full-match default this redirect would swallow /about.
	table := MustTable([]*Route{
		{Path: "", RedirectTo: "/home"},
		{Path: "home", Component: "Home"},
		{Path: "about", Component: "About"},
	})

	mt, hops, err := table.ResolveRedirects(context.Background(), urltree.MustParse("/about"))
	if err != nil {
		t.Fatalf("ResolveRedirects: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("hops = %d, want 0", len(hops))
	}
	if got := primaryLeaf(mt).Route.Component; got != "About" {
		t.Errorf("component = %q, want About", got)
	}

	mt, hops, err = table.ResolveRedirects(context.Background(), urltree.MustParse("/"))
	if err != nil {
		t.Fatalf("ResolveRedirects(/): %v", err)
	}
	if len(hops) != 1 {
		t.Errorf("hops = %d, want 1", len(hops))
	}
	if got := primaryLeaf(mt).Route.Component; got != "Home" {
		t.Errorf("component = %q, want Home", got)
	}
}

func TestTableCopiesRoutes(t *testing.T) {
	routes := []*Route{{Path: "a", Component: "A", Data: map[string]any{"k": 1}}}
	table := MustTable(routes)

	routes[0].Component = "Mutated"
	routes[0].Data["k"] = 2

	got := table.Routes()[0]
	if got.Component != "A" {
		t.Errorf("component = %q, table should own a copy", got.Component)
	}
	if got.Data["k"] != 1 {
		t.Errorf("data = %v, table should own a copy", got.Data)
	}
}

func TestNewTableRejectsCycle(t *testing.T) {
	a := &Route{Path: "a", Component: "A"}
	a.Children = []*Route{a}
	if _, err := NewTable([]*Route{a}); err == nil {
		t.Fatal("expected error for cyclic children")
	}
}

package router

import (
	"context"
	"errors"
	"strings"

	"github.com/strada-dev/strada/pkg/urltree"
)

// MatchTree is the result of matching a URL tree against the table: one node
// per matched route, mirroring the table's shape at match time.
type MatchTree struct {
	// Source is the URL tree that was matched.
	Source *urltree.Tree

	// Root is a synthetic node (Route == nil) holding the top-level matches.
	Root *MatchNode
}

// MatchNode is one matched route with its consumed segments and params.
type MatchNode struct {
	// Route is the matched definition; nil only on the synthetic root.
	Route *Route

	// Outlet is the outlet the node occupies at its depth.
	Outlet string

	// Consumed are the URL segments this node consumed.
	Consumed []urltree.Segment

	// Params are the extracted path params plus the matrix params of the
	// consumed segments.
	Params map[string]string

	// Children are the matches of the next depth, at most one per outlet.
	Children []*MatchNode
}

// ConsumedPath returns the consumed segments joined as a path, e.g. the full
// remaining path captured by a wildcard route.
func (n *MatchNode) ConsumedPath() string {
	parts := make([]string, len(n.Consumed))
	for i, seg := range n.Consumed {
		parts[i] = seg.Path
	}
	return strings.Join(parts, "/")
}

// Flatten returns the matched nodes in depth-first order, excluding the
// synthetic root.
func (mt *MatchTree) Flatten() []*MatchNode {
	var out []*MatchNode
	var walk func(n *MatchNode)
	walk = func(n *MatchNode) {
		if n.Route != nil {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(mt.Root)
	return out
}

// FirstRedirect returns the first redirecting node in depth-first order,
// along with the segments consumed before it (needed to resolve relative
// redirect targets).
func (mt *MatchTree) FirstRedirect() (*MatchNode, []urltree.Segment, bool) {
	return findRedirect(mt.Root, nil)
}

func findRedirect(n *MatchNode, prefix []urltree.Segment) (*MatchNode, []urltree.Segment, bool) {
	for _, c := range n.Children {
		if c.Route != nil && c.Route.IsRedirect() {
			return c, prefix, true
		}
		childPrefix := make([]urltree.Segment, 0, len(prefix)+len(c.Consumed))
		childPrefix = append(childPrefix, prefix...)
		childPrefix = append(childPrefix, c.Consumed...)
		if node, p, ok := findRedirect(c, childPrefix); ok {
			return node, p, ok
		}
	}
	return nil, nil, false
}

// Match matches a parsed URL against the table. Routes are evaluated
// depth-first in declaration order, first-match-wins: a parent that matches
// but whose children cannot consume the remaining segments is treated as
// non-matching and the next sibling is tried.
//
// Returns ErrNoMatch when no root-level candidate matches, *RedirectError
// when a match guard redirects, or *UnexpectedError when a matcher or match
// guard panics.
func (t *Table) Match(ctx context.Context, tree *urltree.Tree) (*MatchTree, error) {
	children, err := t.matchChildren(ctx, t.routes, tree.Segments)
	if err != nil {
		if errors.Is(err, errNoMatch) {
			return nil, ErrNoMatch
		}
		return nil, err
	}
	return &MatchTree{
		Source: tree,
		Root:   &MatchNode{Outlet: OutletPrimary, Children: children},
	}, nil
}

// matchChildren matches one tree depth: the primary outlet consumes the
// segments, named outlets match their empty-path routes at the same level.
// At most one node per outlet.
func (t *Table) matchChildren(ctx context.Context, routes []*Route, segments []urltree.Segment) ([]*MatchNode, error) {
	var nodes []*MatchNode

	primary, err := t.matchOutlet(ctx, routes, segments, OutletPrimary)
	switch {
	case err == nil:
		nodes = append(nodes, primary)
	case errors.Is(err, errNoMatch):
		if len(segments) > 0 {
			// Unconsumed segments with no primary match: this level fails.
			return nil, errNoMatch
		}
	default:
		return nil, err
	}

	for _, outlet := range namedOutlets(routes) {
		node, err := t.matchOutlet(ctx, routes, nil, outlet)
		if err != nil {
			if errors.Is(err, errNoMatch) {
				continue
			}
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if len(nodes) == 0 {
		return nil, errNoMatch
	}
	return nodes, nil
}

// matchOutlet tries each candidate of one outlet in declaration order and
// returns the first match.
func (t *Table) matchOutlet(ctx context.Context, routes []*Route, segments []urltree.Segment, outlet string) (*MatchNode, error) {
	for _, r := range routes {
		if r.outlet() != outlet {
			continue
		}
		node, err := t.matchRoute(ctx, r, segments)
		if errors.Is(err, errNoMatch) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return node, nil
	}
	return nil, errNoMatch
}

// matchRoute matches one route against the remaining segments, then requires
// its children to consume whatever is left.
func (t *Table) matchRoute(ctx context.Context, r *Route, segments []urltree.Segment) (*MatchNode, error) {
	consumed, params, err := t.consume(ctx, r, segments)
	if err != nil {
		return nil, err
	}
	if r.pathMatch() == PathMatchFull && consumed != len(segments) {
		return nil, errNoMatch
	}

	for _, g := range r.Guards {
		if g.Kind != GuardMatch {
			continue
		}
		result, err := g.checkMatch(ctx, r, segments)
		if err != nil {
			return nil, err
		}
		if result.Denied() {
			return nil, errNoMatch
		}
		if tree, ok := result.RedirectTree(); ok {
			return nil, &RedirectError{Tree: tree}
		}
	}

	node := &MatchNode{
		Route:    r,
		Outlet:   r.outlet(),
		Consumed: segments[:consumed:consumed],
		Params:   params,
	}
	// Matrix params merge into the owning node's params without affecting
	// structural matching.
	for _, seg := range node.Consumed {
		for k, v := range seg.Matrix {
			node.Params[k] = v
		}
	}

	if r.IsRedirect() {
		// Redirect routes terminate their branch; expansion happens later.
		return node, nil
	}

	remaining := segments[consumed:]
	if len(remaining) > 0 {
		if len(r.Children) == 0 {
			return nil, errNoMatch
		}
		children, err := t.matchChildren(ctx, r.Children, remaining)
		if err != nil {
			return nil, err
		}
		node.Children = children
	} else if len(r.Children) > 0 {
		children, err := t.matchChildren(ctx, r.Children, nil)
		if err != nil && !errors.Is(err, errNoMatch) {
			return nil, err
		}
		node.Children = children
	}
	return node, nil
}

// consume applies the route's custom matcher or compiled pattern to the
// segments, returning how many were consumed and the extracted params.
func (t *Table) consume(ctx context.Context, r *Route, segments []urltree.Segment) (int, map[string]string, error) {
	if r.Matcher != nil {
		return runCustomMatcher(ctx, r, segments)
	}

	params := make(map[string]string)
	i := 0
	for _, tok := range r.pattern {
		switch tok.kind {
		case tokLiteral:
			if i >= len(segments) || segments[i].Path != tok.text {
				return 0, nil, errNoMatch
			}
			i++
		case tokParam:
			if i >= len(segments) {
				return 0, nil, errNoMatch
			}
			params[tok.text] = segments[i].Path
			i++
		case tokOptParam:
			if i < len(segments) {
				params[tok.text] = segments[i].Path
				i++
			}
		case tokWildcard:
			i = len(segments)
		}
	}
	return i, params, nil
}

// runCustomMatcher invokes a custom matcher with panic recovery.
func runCustomMatcher(ctx context.Context, r *Route, segments []urltree.Segment) (consumed int, params map[string]string, err error) {
	defer func() {
		if v := recover(); v != nil {
			consumed, params = 0, nil
			err = &UnexpectedError{Stage: "matcher", Value: v}
		}
	}()

	result, ok := r.Matcher(ctx, segments, r)
	if !ok || result == nil {
		return 0, nil, errNoMatch
	}
	if result.Consumed < 0 || result.Consumed > len(segments) {
		return 0, nil, errNoMatch
	}
	params = make(map[string]string, len(result.Params))
	for k, v := range result.Params {
		params[k] = v
	}
	return result.Consumed, params, nil
}

// namedOutlets returns the distinct non-primary outlet names of a level in
// declaration order.
func namedOutlets(routes []*Route) []string {
	var names []string
	seen := map[string]bool{OutletPrimary: true}
	for _, r := range routes {
		name := r.outlet()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

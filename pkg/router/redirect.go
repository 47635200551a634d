package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/strada-dev/strada/pkg/urltree"
)

// ExpandRedirect computes the redirect target of a matched redirect node.
// prefix holds the segments consumed before the node, used to resolve
// relative targets; source supplies the query and fragment the target
// inherits when it declares none of its own.
func (t *Table) ExpandRedirect(ctx context.Context, node *MatchNode, prefix []urltree.Segment, source *urltree.Tree) (*urltree.Tree, error) {
	r := node.Route

	if r.RedirectFunc != nil {
		target, err := runRedirectFunc(ctx, r, node)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, fmt.Errorf("router: redirect function for %q returned no target", r.Path)
		}
		return inheritQueryFragment(target, source), nil
	}

	target := r.RedirectTo
	absolute := strings.HasPrefix(target, "/")

	var segments []urltree.Segment
	if !absolute {
		segments = append(segments, prefix...)
	}
	for _, part := range strings.Split(strings.Trim(target, "/"), "/") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			value, ok := node.Params[name]
			if !ok {
				return nil, fmt.Errorf("router: redirect %q references unknown param %q", target, name)
			}
			segments = append(segments, urltree.NewSegment(value))
			continue
		}
		segments = append(segments, urltree.NewSegment(part))
	}

	return inheritQueryFragment(&urltree.Tree{Segments: segments}, source), nil
}

// ResolveRedirects matches a tree and expands redirects until the match is
// redirect-free, re-feeding each target into the matcher. The returned hops
// are the intermediate targets in order. Chains longer than the table limit
// fail with ErrRedirectLoop; cyclic redirect graphs therefore never hang.
func (t *Table) ResolveRedirects(ctx context.Context, tree *urltree.Tree) (*MatchTree, []*urltree.Tree, error) {
	var hops []*urltree.Tree
	current := tree

	for {
		mt, err := t.Match(ctx, current)
		if err != nil {
			var redirect *RedirectError
			if errors.As(err, &redirect) {
				if len(hops) >= t.maxRedirects {
					return nil, hops, ErrRedirectLoop
				}
				current = inheritQueryFragment(redirect.Tree, current)
				hops = append(hops, current)
				continue
			}
			return nil, hops, err
		}

		node, prefix, ok := mt.FirstRedirect()
		if !ok {
			return mt, hops, nil
		}
		if len(hops) >= t.maxRedirects {
			return nil, hops, ErrRedirectLoop
		}

		next, err := t.ExpandRedirect(ctx, node, prefix, current)
		if err != nil {
			return nil, hops, err
		}
		hops = append(hops, next)
		current = next
	}
}

// runRedirectFunc invokes a redirect function with panic recovery.
func runRedirectFunc(ctx context.Context, r *Route, node *MatchNode) (tree *urltree.Tree, err error) {
	defer func() {
		if v := recover(); v != nil {
			tree = nil
			err = &UnexpectedError{Stage: "redirect", Name: r.Path, Value: v}
		}
	}()
	return r.RedirectFunc(ctx, node)
}

// inheritQueryFragment fills in the source's query and fragment when the
// target tree does not carry its own.
func inheritQueryFragment(target, source *urltree.Tree) *urltree.Tree {
	if source == nil {
		return target
	}
	out := target.Clone()
	if out.Query == nil && source.Query != nil {
		out.Query = source.Clone().Query
	}
	if out.Fragment == "" {
		out.Fragment = source.Fragment
	}
	return out
}

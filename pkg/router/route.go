package router

import (
	"context"

	"github.com/strada-dev/strada/pkg/urltree"
)

// OutletPrimary is the name of the default outlet. Routes with an empty
// Outlet field belong to it.
const OutletPrimary = "primary"

// PathMatch controls how much of the remaining URL a route's path must
// consume for the route to count as matched.
type PathMatch string

const (
	// PathMatchPrefix matches when the route path consumes a prefix of the
	// remaining segments. This is the default.
	PathMatchPrefix PathMatch = "prefix"

	// PathMatchFull matches only when the route path consumes every
	// remaining segment.
	PathMatchFull PathMatch = "full"
)

// Trigger identifies what started a navigation.
type Trigger string

const (
	// TriggerImperative is a programmatic Navigate/NavigateByURL call.
	TriggerImperative Trigger = "imperative"

	// TriggerBrowser is a history event (back/forward, address bar).
	TriggerBrowser Trigger = "browser"

	// TriggerRedirect is a navigation restarted by a redirect expansion.
	TriggerRedirect Trigger = "redirect"
)

// NavInfo is the guard-visible view of a navigation: its id, trigger, and
// target URL. Guards receive it read-only; they influence the navigation
// only through the GuardResult they return.
type NavInfo struct {
	ID      int64
	Trigger Trigger
	Target  *urltree.Tree
}

// MatcherResult is the output of a custom segment matcher.
type MatcherResult struct {
	// Consumed is how many leading segments the route consumed.
	Consumed int

	// Params are the parameters the matcher extracted.
	Params map[string]string
}

// SegmentMatcher is a custom matching function for a route. It receives the
// unconsumed segments and reports how many it consumed plus any extracted
// params, or ok=false for no match. It runs instead of the route's path
// pattern and may block on the context.
type SegmentMatcher func(ctx context.Context, segments []urltree.Segment, route *Route) (*MatcherResult, bool)

// Resolver fetches one data value for a snapshot about to activate.
type Resolver func(ctx context.Context, snap *Snapshot) (any, error)

// RedirectFunc computes a redirect target from the matched node. It may
// block on the context; returning a nil tree with nil error means
// "no redirect after all" and fails the match.
type RedirectFunc func(ctx context.Context, m *MatchNode) (*urltree.Tree, error)

// Route is one route definition. Routes form a static tree and are immutable
// once registered in a Table; NewTable copies them defensively.
type Route struct {
	// Path is the route pattern: literal segments, ":param" segments,
	// trailing optional ":param?" segments, or a terminal "**" wildcard.
	// An empty Path matches without consuming segments.
	Path string

	// Component names the component the outlet factory instantiates for
	// this route. Opaque to the engine; empty for componentless routes.
	Component string

	// Outlet is the outlet this route targets; empty means primary.
	Outlet string

	// Matcher, when set, replaces pattern matching for this route.
	Matcher SegmentMatcher

	// Guards are evaluated in declaration order. See Guard for kinds.
	Guards []Guard

	// Resolve maps data keys to resolver functions, all of which must
	// settle before the route activates.
	Resolve map[string]Resolver

	// RedirectTo redirects the matched URL to another path. Supports
	// ":param" template substitution from the matched params. A leading
	// slash makes the target absolute; otherwise it is resolved against
	// the segments consumed before this route.
	RedirectTo string

	// RedirectFunc computes the redirect target dynamically. Mutually
	// exclusive with RedirectTo.
	RedirectFunc RedirectFunc

	// PathMatch selects prefix or full matching. Empty-path redirect
	// routes default to full; everything else defaults to prefix.
	PathMatch PathMatch

	// AllowRootPrefix opts a root-level empty-path redirect into prefix
	// matching. Without it, such a route would swallow every URL, so
	// table validation rejects the combination.
	AllowRootPrefix bool

	// Reuse tags the route for custom reuse strategies.
	Reuse string

	// Children are the nested route definitions.
	Children []*Route

	// Data is the static data bag merged into each snapshot of this route.
	Data map[string]any

	// pattern is the compiled Path, set by NewTable.
	pattern []patternToken
}

// IsRedirect reports whether the route redirects instead of activating.
func (r *Route) IsRedirect() bool {
	return r.RedirectTo != "" || r.RedirectFunc != nil
}

// outlet returns the normalized outlet name.
func (r *Route) outlet() string {
	if r.Outlet == "" {
		return OutletPrimary
	}
	return r.Outlet
}

// pathMatch returns the effective path-match mode. Empty-path redirects
// default to full so they cannot shadow every sibling.
func (r *Route) pathMatch() PathMatch {
	if r.PathMatch != "" {
		return r.PathMatch
	}
	if r.Path == "" && r.IsRedirect() {
		return PathMatchFull
	}
	return PathMatchPrefix
}

// clone deep-copies the route and its children for table registration.
func (r *Route) clone() *Route {
	out := *r
	if r.Data != nil {
		out.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			out.Data[k] = v
		}
	}
	if r.Guards != nil {
		out.Guards = append([]Guard(nil), r.Guards...)
	}
	if r.Resolve != nil {
		out.Resolve = make(map[string]Resolver, len(r.Resolve))
		for k, v := range r.Resolve {
			out.Resolve[k] = v
		}
	}
	if r.Children != nil {
		out.Children = make([]*Route, len(r.Children))
		for i, child := range r.Children {
			out.Children[i] = child.clone()
		}
	}
	return &out
}

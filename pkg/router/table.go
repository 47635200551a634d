package router

import (
	"strings"
)

// DefaultMaxRedirects bounds redirect chains. Exceeding it fails the
// navigation with ErrRedirectLoop instead of hanging.
const DefaultMaxRedirects = 10

// patternToken is one compiled element of a route path.
type patternToken struct {
	kind tokenKind
	text string // literal text or param name
}

type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokParam
	tokOptParam
	tokWildcard
)

// Wildcard is the terminal catch-all path pattern.
const Wildcard = "**"

// Table is the static, ordered route tree. Declaration order is priority:
// matching is depth-first and first-match-wins.
type Table struct {
	routes       []*Route
	maxRedirects int
}

// TableOption configures table construction.
type TableOption func(*Table)

// WithMaxRedirects overrides the redirect chain limit.
func WithMaxRedirects(n int) TableOption {
	return func(t *Table) {
		if n > 0 {
			t.maxRedirects = n
		}
	}
}

// NewTable validates and compiles a route configuration. The routes are
// copied; the table is immutable afterwards.
func NewTable(routes []*Route, opts ...TableOption) (*Table, error) {
	t := &Table{maxRedirects: DefaultMaxRedirects}
	for _, opt := range opts {
		opt(t)
	}

	// Cycle-check the originals before cloning; clone would recurse forever
	// on a cyclic graph.
	seen := make(map[*Route]bool)
	for _, r := range routes {
		if err := checkAcyclic(r, seen); err != nil {
			return nil, err
		}
	}

	t.routes = make([]*Route, len(routes))
	for i, r := range routes {
		t.routes[i] = r.clone()
	}

	for _, r := range t.routes {
		if err := validateRoute(r, true); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// checkAcyclic rejects nil routes and definitions that appear twice on one
// path from the root: children form a tree, never a graph.
func checkAcyclic(r *Route, seen map[*Route]bool) error {
	if r == nil {
		return &ConfigError{Reason: "nil route"}
	}
	if seen[r] {
		return &ConfigError{Path: r.Path, Reason: "route appears twice in the tree (cycle)"}
	}
	seen[r] = true
	defer delete(seen, r)
	for _, child := range r.Children {
		if err := checkAcyclic(child, seen); err != nil {
			return err
		}
	}
	return nil
}

// MustTable is NewTable for static configurations; it panics on invalid ones.
func MustTable(routes []*Route, opts ...TableOption) *Table {
	t, err := NewTable(routes, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the registered top-level routes. Callers must not mutate
// the returned definitions.
func (t *Table) Routes() []*Route {
	return t.routes
}

// MaxRedirects returns the redirect chain limit.
func (t *Table) MaxRedirects() int {
	return t.maxRedirects
}

// validateRoute checks one route and recurses into children.
func validateRoute(r *Route, root bool) error {
	if r.RedirectTo != "" && r.RedirectFunc != nil {
		return &ConfigError{Path: r.Path, Reason: "RedirectTo and RedirectFunc are mutually exclusive"}
	}
	if r.IsRedirect() && len(r.Children) > 0 {
		return &ConfigError{Path: r.Path, Reason: "redirect routes cannot have children"}
	}
	switch r.PathMatch {
	case "", PathMatchPrefix, PathMatchFull:
	default:
		return &ConfigError{Path: r.Path, Reason: "PathMatch must be \"prefix\" or \"full\""}
	}

	// A prefix-matching empty-path redirect at the root swallows every URL.
	// Require the explicit opt-in.
	if root && r.Path == "" && r.IsRedirect() &&
		r.PathMatch == PathMatchPrefix && !r.AllowRootPrefix {
		return &ConfigError{Path: r.Path, Reason: "prefix match on an empty-path root redirect requires AllowRootPrefix"}
	}

	pattern, err := compilePattern(r.Path)
	if err != nil {
		return err
	}
	r.pattern = pattern

	if hasWildcard(pattern) && len(r.Children) > 0 {
		return &ConfigError{Path: r.Path, Reason: "wildcard routes cannot have children"}
	}

	for _, child := range r.Children {
		if err := validateRoute(child, false); err != nil {
			return err
		}
	}
	return nil
}

// compilePattern parses a route path into tokens. Wildcards must be terminal
// and optional params may only trail the pattern.
func compilePattern(path string) ([]patternToken, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}

	var tokens []patternToken
	sawOptional := false
	for _, seg := range strings.Split(path, "/") {
		if len(tokens) > 0 && tokens[len(tokens)-1].kind == tokWildcard {
			return nil, &ConfigError{Path: path, Reason: "wildcard must be the last segment"}
		}
		switch {
		case seg == Wildcard:
			tokens = append(tokens, patternToken{kind: tokWildcard})
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			kind := tokParam
			if strings.HasSuffix(name, "?") {
				name = strings.TrimSuffix(name, "?")
				kind = tokOptParam
				sawOptional = true
			} else if sawOptional {
				return nil, &ConfigError{Path: path, Reason: "required segments cannot follow optional ones"}
			}
			if name == "" {
				return nil, &ConfigError{Path: path, Reason: "parameter segment needs a name"}
			}
			tokens = append(tokens, patternToken{kind: kind, text: name})
		default:
			if sawOptional {
				return nil, &ConfigError{Path: path, Reason: "required segments cannot follow optional ones"}
			}
			tokens = append(tokens, patternToken{kind: tokLiteral, text: seg})
		}
	}
	return tokens, nil
}

func hasWildcard(tokens []patternToken) bool {
	return len(tokens) > 0 && tokens[len(tokens)-1].kind == tokWildcard
}

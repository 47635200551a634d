package router

import (
	"errors"
	"fmt"

	"github.com/strada-dev/strada/pkg/urltree"
)

// Sentinel errors returned by matching and redirect resolution.
var (
	// ErrNoMatch is returned when no route at the root level matches.
	ErrNoMatch = errors.New("router: no matching route")

	// ErrRedirectLoop is returned when redirect expansion exceeds the
	// configured chain limit.
	ErrRedirectLoop = errors.New("router: redirect chain limit exceeded")
)

// errNoMatch is the internal backtracking signal; Table.Match converts it to
// ErrNoMatch only when the whole tree fails.
var errNoMatch = errors.New("router: candidate did not match")

// RedirectError carries a redirect target raised during matching, e.g. by a
// match guard. The pipeline catches it and restarts matching at the target.
type RedirectError struct {
	Tree *urltree.Tree
}

// Error returns the redirect description.
func (e *RedirectError) Error() string {
	return fmt.Sprintf("router: redirected to %s", e.Tree)
}

// UnexpectedError wraps a panic raised by a matcher, guard, or resolver.
// It is never swallowed; the pipeline normalizes it into the corresponding
// rejection with the unexpected flag set.
type UnexpectedError struct {
	// Stage is the pipeline stage that raised: "matcher", "guard",
	// "match-guard", "redirect", or "resolver".
	Stage string

	// Name identifies the guard or resolver, if any.
	Name string

	// Value is the recovered panic value.
	Value any
}

// Error returns the panic description.
func (e *UnexpectedError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("router: %s %q panicked: %v", e.Stage, e.Name, e.Value)
	}
	return fmt.Sprintf("router: %s panicked: %v", e.Stage, e.Value)
}

// ConfigError reports an invalid route definition found by NewTable.
type ConfigError struct {
	Path   string // route path the error concerns
	Reason string
}

// Error returns the configuration problem.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("router: invalid route %q: %s", e.Path, e.Reason)
}

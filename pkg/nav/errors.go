package nav

import (
	"errors"
	"fmt"

	"github.com/strada-dev/strada/pkg/router"
)

// Sentinel errors of the navigation failure taxonomy.
var (
	// ErrNotFound is returned when no route matches at the root level.
	// Recoverable by design: configure a wildcard fallback route.
	ErrNotFound = errors.New("nav: no route matches the url")

	// ErrRedirectLoop is returned when a redirect chain exceeds the
	// configured limit. Always surfaced, never swallowed.
	ErrRedirectLoop = errors.New("nav: redirect chain limit exceeded")

	// ErrSuperseded is the informational cancellation of a navigation
	// displaced by a newer one. Not user-facing.
	ErrSuperseded = errors.New("nav: navigation superseded")

	// ErrPipelineClosed is returned when navigating on a closed pipeline.
	ErrPipelineClosed = errors.New("nav: pipeline closed")
)

// GuardRejectedError reports the guard and node that denied a navigation.
// Recoverable by design: callers configure deny-redirects or fallbacks.
type GuardRejectedError struct {
	// Guard is the denying guard's name.
	Guard string

	// Kind is the denying guard's kind.
	Kind router.GuardKind

	// Node is the snapshot the guard rejected, if any.
	Node *router.Snapshot

	// Unexpected marks a rejection normalized from a panic.
	Unexpected bool

	// Cause is the underlying error for unexpected rejections.
	Cause error
}

// Error returns the rejection description.
func (e *GuardRejectedError) Error() string {
	if e.Unexpected {
		return fmt.Sprintf("nav: guard %q rejected (unexpected): %v", e.Guard, e.Cause)
	}
	return fmt.Sprintf("nav: guard %q rejected navigation", e.Guard)
}

// Unwrap returns the underlying cause, if any.
func (e *GuardRejectedError) Unwrap() error { return e.Cause }

// ResolverError reports the resolver and node whose data fetch failed.
// It surfaces via the Error event and terminates the navigation without
// altering current route state.
type ResolverError struct {
	// Key is the failing entry in the route's resolver map.
	Key string

	// Node is the snapshot being resolved.
	Node *router.Snapshot

	// Unexpected marks a failure normalized from a panic.
	Unexpected bool

	// Cause is the resolver's error.
	Cause error
}

// Error returns the failure description.
func (e *ResolverError) Error() string {
	if e.Unexpected {
		return fmt.Sprintf("nav: resolver %q failed (unexpected): %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("nav: resolver %q failed: %v", e.Key, e.Cause)
}

// Unwrap returns the resolver's error.
func (e *ResolverError) Unwrap() error { return e.Cause }

// CancelReason explains a Cancelled terminal state.
type CancelReason string

const (
	// CancelGuardRejected means a guard denied the navigation.
	CancelGuardRejected CancelReason = "guard-rejected"

	// CancelSuperseded means a newer navigation displaced this one.
	CancelSuperseded CancelReason = "superseded"
)

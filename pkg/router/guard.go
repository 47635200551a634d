package router

import (
	"context"
	"fmt"

	"github.com/strada-dev/strada/pkg/urltree"
)

// GuardKind is the closed set of guard kinds. Modeling them as a tagged
// variant lets the evaluator handle every kind exhaustively.
type GuardKind int

const (
	// GuardEnter controls entering the guarded route itself.
	GuardEnter GuardKind = iota

	// GuardEnterChild controls entering any descendant of the guarded
	// route. Evaluated once per subtree regardless of depth.
	GuardEnterChild

	// GuardLeave controls leaving the guarded route. Evaluated against the
	// node being deactivated.
	GuardLeave

	// GuardMatch participates in matching. A deny makes the matcher try
	// the next candidate at that position instead of failing the
	// navigation.
	GuardMatch
)

// String returns the guard kind name.
func (k GuardKind) String() string {
	switch k {
	case GuardEnter:
		return "enter"
	case GuardEnterChild:
		return "enter-child"
	case GuardLeave:
		return "leave"
	case GuardMatch:
		return "match"
	default:
		return fmt.Sprintf("guard(%d)", int(k))
	}
}

type guardDecision int

const (
	decisionAllow guardDecision = iota
	decisionDeny
	decisionRedirect
)

// GuardResult is the tri-state outcome of a guard: allow, deny, or redirect
// to another URL tree.
type GuardResult struct {
	decision guardDecision
	redirect *urltree.Tree
}

// Allow permits the navigation to proceed past this guard.
func Allow() GuardResult {
	return GuardResult{decision: decisionAllow}
}

// Deny rejects the navigation.
func Deny() GuardResult {
	return GuardResult{decision: decisionDeny}
}

// Redirect rejects the navigation and restarts it at the given tree.
func Redirect(tree *urltree.Tree) GuardResult {
	return GuardResult{decision: decisionRedirect, redirect: tree}
}

// RedirectTo is Redirect for a plain path.
func RedirectTo(path string) GuardResult {
	return Redirect(urltree.FromPath(path))
}

// Allowed reports whether the guard permitted the navigation.
func (g GuardResult) Allowed() bool { return g.decision == decisionAllow }

// Denied reports whether the guard rejected the navigation outright.
func (g GuardResult) Denied() bool { return g.decision == decisionDeny }

// RedirectTree returns the redirect target, if the guard redirected.
func (g GuardResult) RedirectTree() (*urltree.Tree, bool) {
	return g.redirect, g.decision == decisionRedirect
}

// CheckFunc is a guard predicate over the snapshot being entered or left and
// the navigation attempting it. Guards may read external state but must not
// mutate the navigation; they communicate only through the GuardResult.
type CheckFunc func(ctx context.Context, snap *Snapshot, nav NavInfo) (GuardResult, error)

// MatchCheckFunc is a match-time guard predicate over the candidate route
// and the unconsumed segments.
type MatchCheckFunc func(ctx context.Context, route *Route, segments []urltree.Segment) (GuardResult, error)

// Guard is one access-control predicate attached to a route.
type Guard struct {
	// Kind selects when the guard runs.
	Kind GuardKind

	// Name identifies the guard in errors and events.
	Name string

	check      CheckFunc
	matchCheck MatchCheckFunc
}

// CanEnter builds an enter-this-route guard.
func CanEnter(name string, fn CheckFunc) Guard {
	return Guard{Kind: GuardEnter, Name: name, check: fn}
}

// CanEnterChild builds an enter-any-descendant guard.
func CanEnterChild(name string, fn CheckFunc) Guard {
	return Guard{Kind: GuardEnterChild, Name: name, check: fn}
}

// CanLeave builds a leave-current-route guard.
func CanLeave(name string, fn CheckFunc) Guard {
	return Guard{Kind: GuardLeave, Name: name, check: fn}
}

// CanMatch builds a participate-in-matching guard.
func CanMatch(name string, fn MatchCheckFunc) Guard {
	return Guard{Kind: GuardMatch, Name: name, matchCheck: fn}
}

// Check runs an enter/enter-child/leave guard with panic recovery. A panic
// surfaces as an *UnexpectedError so the pipeline can normalize it.
func (g Guard) Check(ctx context.Context, snap *Snapshot, nav NavInfo) (result GuardResult, err error) {
	if g.check == nil {
		return Allow(), nil
	}
	defer func() {
		if v := recover(); v != nil {
			result = Deny()
			err = &UnexpectedError{Stage: "guard", Name: g.Name, Value: v}
		}
	}()
	return g.check(ctx, snap, nav)
}

// checkMatch runs a match guard with panic recovery.
func (g Guard) checkMatch(ctx context.Context, route *Route, segments []urltree.Segment) (result GuardResult, err error) {
	if g.matchCheck == nil {
		return Allow(), nil
	}
	defer func() {
		if v := recover(); v != nil {
			result = Deny()
			err = &UnexpectedError{Stage: "match-guard", Name: g.Name, Value: v}
		}
	}()
	return g.matchCheck(ctx, route, segments)
}

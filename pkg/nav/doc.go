// Package nav is the navigation engine: it drives URL changes through
// matching, redirect expansion, guard checking, data resolution, and
// activation, keeping exactly one navigation current at a time.
//
// The Pipeline owns the state machine. Navigations move strictly forward
// through Matching, an optional Redirecting cycle, GuardsChecking,
// Resolving, and Activating, and settle in exactly one of Completed,
// Cancelled, or Failed. Starting a new navigation supersedes the in-flight
// one; the loser cancels cooperatively, emits a terminal Cancel event, and
// never touches route state, history, or component handles.
//
// Lifecycle events flow through the Bus in emission order. Observers run
// synchronously on the navigating goroutine, so middleware such as metrics
// and tracing sees events exactly as ordered.
package nav

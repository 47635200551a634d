// Package middleware provides observers for the navigation event bus:
// Prometheus metrics, OpenTelemetry traces, and structured logging. Each
// constructor returns a nav.Observer; register it with the pipeline's bus.
package middleware

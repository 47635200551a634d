// Package server hosts navigation pipelines for remote clients over
// WebSocket. Clients send navigate frames; the pipeline's lifecycle events
// stream back in order. Health and Prometheus endpoints ride the same mux.
package server

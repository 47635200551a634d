// Package strada is a client-side navigation engine: URL parsing, route
// matching with guards and resolvers, redirects, and an observable
// navigation lifecycle. This package is the user-facing facade; the engine
// lives in pkg/nav and pkg/router.
package strada

import (
	"context"
	"log/slog"

	"github.com/strada-dev/strada/pkg/history"
	"github.com/strada-dev/strada/pkg/manifest"
	"github.com/strada-dev/strada/pkg/nav"
	"github.com/strada-dev/strada/pkg/router"
	"github.com/strada-dev/strada/pkg/server"
	"github.com/strada-dev/strada/pkg/urltree"
)

// App binds a route table to a navigation pipeline with sensible defaults.
type App struct {
	table    *router.Table
	pipeline *nav.Pipeline
	log      *slog.Logger
}

// Option configures an App.
type Option func(*options)

type options struct {
	log          *slog.Logger
	maxRedirects int
	manifest     *manifest.Manifest
	observers    []nav.Observer
	pipelineOpts []nav.PipelineOption
}

// WithLogger sets the application logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMaxRedirects bounds redirect chains per navigation.
func WithMaxRedirects(n int) Option {
	return func(o *options) { o.maxRedirects = n }
}

// WithManifest registers a redirect manifest ahead of the application
// routes, so manifest rules win on conflicts.
func WithManifest(m *manifest.Manifest) Option {
	return func(o *options) { o.manifest = m }
}

// WithObservers registers lifecycle observers on the pipeline's bus.
func WithObservers(obs ...nav.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}

// WithReuseStrategy sets the component reuse policy.
func WithReuseStrategy(s nav.ReuseStrategy) Option {
	return func(o *options) {
		o.pipelineOpts = append(o.pipelineOpts, nav.WithReuseStrategy(s))
	}
}

// WithOutletFactory sets the component instantiation boundary.
func WithOutletFactory(f nav.OutletFactory) Option {
	return func(o *options) {
		o.pipelineOpts = append(o.pipelineOpts, nav.WithOutletFactory(f))
	}
}

// WithHistory sets the session history implementation.
func WithHistory(h history.History) Option {
	return func(o *options) {
		o.pipelineOpts = append(o.pipelineOpts, nav.WithHistory(h))
	}
}

// New validates the routes and builds an app.
func New(routes []*router.Route, opts ...Option) (*App, error) {
	o := &options{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	if o.manifest != nil {
		routes = append(o.manifest.Routes(), routes...)
	}

	var tableOpts []router.TableOption
	if o.maxRedirects > 0 {
		tableOpts = append(tableOpts, router.WithMaxRedirects(o.maxRedirects))
	}
	table, err := router.NewTable(routes, tableOpts...)
	if err != nil {
		return nil, err
	}

	pipelineOpts := append([]nav.PipelineOption{nav.WithLogger(o.log)}, o.pipelineOpts...)
	pipeline := nav.New(table, pipelineOpts...)
	for _, obs := range o.observers {
		pipeline.Events().Observe(obs)
	}

	return &App{table: table, pipeline: pipeline, log: o.log}, nil
}

// Navigate starts a navigation to a raw URL.
func (a *App) Navigate(ctx context.Context, url string, opts ...nav.Option) (*nav.Navigation, error) {
	return a.pipeline.NavigateByURL(ctx, url, opts...)
}

// NavigateTree starts a navigation to a parsed URL tree.
func (a *App) NavigateTree(ctx context.Context, tree *urltree.Tree, opts ...nav.Option) (*nav.Navigation, error) {
	return a.pipeline.Navigate(ctx, tree, opts...)
}

// Current returns the committed route state, nil before the first completed
// navigation.
func (a *App) Current() *nav.RouteState {
	return a.pipeline.Current()
}

// Events returns the lifecycle event bus.
func (a *App) Events() *nav.Bus {
	return a.pipeline.Events()
}

// Pipeline returns the underlying navigation pipeline.
func (a *App) Pipeline() *nav.Pipeline {
	return a.pipeline
}

// Table returns the validated route table.
func (a *App) Table() *router.Table {
	return a.table
}

// History returns the session history.
func (a *App) History() history.History {
	return a.pipeline.History()
}

// Serve hosts the app's route table for WebSocket clients until the context
// is cancelled.
func (a *App) Serve(ctx context.Context, cfg *server.ServerConfig) error {
	return server.New(a.table, cfg).Start(ctx)
}

// Close shuts the pipeline down, settling any in-flight navigation.
func (a *App) Close() error {
	return a.pipeline.Close()
}

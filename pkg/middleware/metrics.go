package middleware

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strada-dev/strada/pkg/nav"
)

// MetricsConfig configures the Prometheus metrics observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "strada").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "strada",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for navigation.
type metrics struct {
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	redirectHops       prometheus.Counter
	guardDenials       prometheus.Counter
	resolverFailures   prometheus.Counter
	supersessions      prometheus.Counter
	inFlight           prometheus.Gauge
}

// initMetrics registers the navigation metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total navigations by terminal outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration from start to terminal event",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		redirectHops: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "redirect_hops_total",
			Help:        "Total redirect expansions across all navigations",
			ConstLabels: config.ConstLabels,
		}),

		guardDenials: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "guard_denials_total",
			Help:        "Total navigations rejected by a guard",
			ConstLabels: config.ConstLabels,
		}),

		resolverFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resolver_failures_total",
			Help:        "Total navigations failed by a data resolver",
			ConstLabels: config.ConstLabels,
		}),

		supersessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "supersessions_total",
			Help:        "Total navigations displaced by a newer one",
			ConstLabels: config.ConstLabels,
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_in_flight",
			Help:        "Navigations started but not yet settled",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates an event observer that collects Prometheus metrics for
// every navigation.
//
// Metrics collected:
//   - strada_navigations_total: Counter of navigations by outcome
//   - strada_navigation_duration_seconds: Histogram of navigation duration
//   - strada_redirect_hops_total: Counter of redirect expansions
//   - strada_guard_denials_total: Counter of guard rejections
//   - strada_resolver_failures_total: Counter of resolver failures
//   - strada_supersessions_total: Counter of displaced navigations
//   - strada_navigations_in_flight: Gauge of unsettled navigations
//
// Example:
//
//	pipeline.Events().Observe(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) nav.Observer {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := initMetrics(config)

	var mu sync.Mutex
	started := make(map[int64]time.Time)

	settle := func(ev nav.Event, outcome string) {
		mu.Lock()
		start, ok := started[ev.NavigationID]
		delete(started, ev.NavigationID)
		mu.Unlock()

		m.navigationsTotal.WithLabelValues(outcome).Inc()
		if ok {
			m.inFlight.Dec()
			m.navigationDuration.WithLabelValues(outcome).Observe(ev.At.Sub(start).Seconds())
		}
	}

	return func(ev nav.Event) {
		switch ev.Kind {
		case nav.EventStart:
			mu.Lock()
			started[ev.NavigationID] = ev.At
			mu.Unlock()
			m.inFlight.Inc()

		case nav.EventRedirect:
			m.redirectHops.Inc()

		case nav.EventEnd:
			settle(ev, "completed")

		case nav.EventCancel:
			switch ev.Reason {
			case nav.CancelGuardRejected:
				m.guardDenials.Inc()
				settle(ev, "guard_rejected")
			default:
				m.supersessions.Inc()
				settle(ev, "superseded")
			}

		case nav.EventError:
			var rerr *nav.ResolverError
			if errors.As(ev.Err, &rerr) {
				m.resolverFailures.Inc()
			}
			settle(ev, "failed")
		}
	}
}

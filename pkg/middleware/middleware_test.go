package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/strada-dev/strada/pkg/nav"
)

// gatherValue reads one metric value from a registry by name and label pair.
func gatherValue(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if labelValue != "" && !hasLabel(m, labelValue) {
				continue
			}
			switch {
			case m.Counter != nil:
				return m.GetCounter().GetValue()
			case m.Gauge != nil:
				return m.GetGauge().GetValue()
			case m.Histogram != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetValue() == value {
			return true
		}
	}
	return false
}

func event(kind nav.EventKind, id int64, at time.Time) nav.Event {
	return nav.Event{Kind: kind, NavigationID: id, URL: "/x", At: at}
}

func TestPrometheusObserverCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := Prometheus(WithRegistry(reg), WithNamespace("test"))

	now := time.Now()

	// Completed navigation with one redirect.
	obs(event(nav.EventStart, 1, now))
	obs(event(nav.EventRedirect, 1, now))
	obs(event(nav.EventEnd, 1, now.Add(50*time.Millisecond)))

	// Guard-rejected navigation.
	obs(event(nav.EventStart, 2, now))
	cancel := event(nav.EventCancel, 2, now)
	cancel.Reason = nav.CancelGuardRejected
	obs(cancel)

	// Superseded navigation.
	obs(event(nav.EventStart, 3, now))
	cancel = event(nav.EventCancel, 3, now)
	cancel.Reason = nav.CancelSuperseded
	obs(cancel)

	// Resolver failure.
	obs(event(nav.EventStart, 4, now))
	fail := event(nav.EventError, 4, now)
	fail.Err = &nav.ResolverError{Key: "data", Cause: errors.New("boom")}
	obs(fail)

	if got := gatherValue(t, reg, "test_navigations_total", "completed"); got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_navigations_total", "guard_rejected"); got != 1 {
		t.Errorf("guard_rejected = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_navigations_total", "superseded"); got != 1 {
		t.Errorf("superseded = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_navigations_total", "failed"); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_redirect_hops_total", ""); got != 1 {
		t.Errorf("redirect hops = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_guard_denials_total", ""); got != 1 {
		t.Errorf("guard denials = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_supersessions_total", ""); got != 1 {
		t.Errorf("supersessions = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_resolver_failures_total", ""); got != 1 {
		t.Errorf("resolver failures = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "test_navigations_in_flight", ""); got != 0 {
		t.Errorf("in flight = %v, want 0 after all settle", got)
	}
	if got := gatherValue(t, reg, "test_navigation_duration_seconds", "completed"); got != 1 {
		t.Errorf("duration samples = %v, want 1", got)
	}
}

func TestPrometheusObserverTracksInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := Prometheus(WithRegistry(reg))

	obs(event(nav.EventStart, 1, time.Now()))
	if got := gatherValue(t, reg, "strada_navigations_in_flight", ""); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	obs(event(nav.EventEnd, 1, time.Now()))
	if got := gatherValue(t, reg, "strada_navigations_in_flight", ""); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestOpenTelemetryObserverIgnoresUnknownNavigations(t *testing.T) {
	obs := OpenTelemetry(WithTracerName("test"))

	// Phase and terminal events for a navigation that never started must
	// be dropped, not panic.
	obs(event(nav.EventGuardsStart, 9, time.Now()))
	obs(event(nav.EventEnd, 9, time.Now()))
}

func TestOpenTelemetryObserverFilters(t *testing.T) {
	filtered := 0
	obs := OpenTelemetry(
		WithNavigationFilter(func(ev nav.Event) bool {
			filtered++
			return false
		}),
	)

	obs(event(nav.EventStart, 1, time.Now()))
	obs(event(nav.EventEnd, 1, time.Now()))

	if filtered != 1 {
		t.Errorf("filter calls = %d, want 1 (start only)", filtered)
	}
}

func TestOpenTelemetryObserverFullLifecycle(t *testing.T) {
	obs := OpenTelemetry()

	now := time.Now()
	obs(event(nav.EventStart, 1, now))
	obs(event(nav.EventRedirect, 1, now))
	obs(event(nav.EventGuardsStart, 1, now))
	denied := event(nav.EventGuardsEnd, 1, now)
	denied.Denied = true
	obs(denied)
	fail := event(nav.EventError, 1, now)
	fail.Err = errors.New("boom")
	obs(fail)

	// The span map must be drained after the terminal event.
	obs(event(nav.EventGuardsStart, 1, now))
}

func TestLoggerObserver(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := Logger(log)

	now := time.Now()
	obs(nav.Event{Kind: nav.EventStart, NavigationID: 1, URL: "/a", At: now})
	obs(nav.Event{Kind: nav.EventRedirect, NavigationID: 1, URL: "/a", RedirectTo: "/b", At: now})
	obs(nav.Event{Kind: nav.EventEnd, NavigationID: 1, URL: "/b", At: now})
	obs(nav.Event{Kind: nav.EventError, NavigationID: 2, URL: "/c", Err: errors.New("boom"), At: now})

	out := buf.String()
	for _, want := range []string{"navigation completed", "navigation redirected", "navigation failed", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

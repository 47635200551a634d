package middleware

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strada-dev/strada/pkg/nav"
)

// Default tracer name for Strada applications.
const defaultTracerName = "strada"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "strada").
	TracerName string

	// Filter determines which navigations to trace, keyed off the Start
	// event. Return true to trace, false to skip. If nil, all navigations
	// are traced.
	Filter func(ev nav.Event) bool

	// AttributeExtractor extracts custom attributes from each event.
	AttributeExtractor func(ev nav.Event) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(ev nav.Event) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ev nav.Event) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates an event observer that traces every navigation.
//
// The observer:
//   - Opens one span per navigation at Start and ends it on the terminal
//     event (End, Cancel, or Error)
//   - Records each lifecycle phase as a span event
//   - Records the error and sets span status on failed navigations
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before navigating:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) nav.Observer {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	var mu sync.Mutex
	spans := make(map[int64]trace.Span)

	return func(ev nav.Event) {
		attrs := []attribute.KeyValue{
			attribute.Int64("strada.navigation_id", ev.NavigationID),
			attribute.String("strada.url", ev.URL),
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ev)...)
		}

		switch ev.Kind {
		case nav.EventStart:
			if config.Filter != nil && !config.Filter(ev) {
				return
			}
			_, span := config.tracer.Start(
				context.Background(),
				fmt.Sprintf("strada.navigate %s", ev.URL),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
				trace.WithTimestamp(ev.At),
			)
			mu.Lock()
			spans[ev.NavigationID] = span
			mu.Unlock()

		case nav.EventEnd, nav.EventCancel, nav.EventError:
			mu.Lock()
			span, ok := spans[ev.NavigationID]
			delete(spans, ev.NavigationID)
			mu.Unlock()
			if !ok {
				return
			}
			switch ev.Kind {
			case nav.EventError:
				span.RecordError(ev.Err)
				span.SetStatus(codes.Error, ev.Err.Error())
			case nav.EventCancel:
				span.SetAttributes(attribute.String("strada.cancel_reason", string(ev.Reason)))
				span.SetStatus(codes.Ok, "")
			default:
				span.SetStatus(codes.Ok, "")
			}
			span.End(trace.WithTimestamp(ev.At))

		default:
			mu.Lock()
			span, ok := spans[ev.NavigationID]
			mu.Unlock()
			if !ok {
				return
			}
			if ev.Kind == nav.EventRedirect {
				attrs = append(attrs, attribute.String("strada.redirect_to", ev.RedirectTo))
			}
			if ev.Kind == nav.EventGuardsEnd && ev.Denied {
				attrs = append(attrs, attribute.Bool("strada.guards_denied", true))
			}
			span.AddEvent(ev.Kind.String(),
				trace.WithTimestamp(ev.At),
				trace.WithAttributes(attrs...),
			)
		}
	}
}

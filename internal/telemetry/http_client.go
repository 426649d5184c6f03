package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedTransport wraps base so every outgoing request becomes a
// client span tagged with the remote service name. A nil base uses
// http.DefaultTransport.
func InstrumentedTransport(service string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanOptions(
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("external.service", service)),
		),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return service + " " + r.Method
		}),
	)
}

// NewInstrumentedHTTPClient creates an HTTP client whose requests are traced
func NewInstrumentedHTTPClient(service string, timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: InstrumentedTransport(service, nil),
	}
}

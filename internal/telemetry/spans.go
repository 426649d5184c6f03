package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nextolk/backend"

// StartSpan starts an internal span on the global tracer provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TraceTranscode starts the span covering one transcode job
func TraceTranscode(ctx context.Context, jobID string, videoID uint) (context.Context, trace.Span) {
	return StartSpan(ctx, "transcode.job",
		attribute.String("job.id", jobID),
		attribute.Int64("video.id", int64(videoID)),
	)
}

// TraceSearch starts the span covering a search request
func TraceSearch(ctx context.Context, kind, query string) (context.Context, trace.Span) {
	return StartSpan(ctx, "search."+kind,
		attribute.String("search.kind", kind),
		attribute.Int("search.query_length", len(query)),
	)
}

package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withRecorder installs a recording tracer provider for the test
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestGORMTracingPlugin(t *testing.T) {
	db, err := database.OpenSQLite(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db))

	recorder := withRecorder(t)
	require.NoError(t, db.Use(GORMTracingPlugin()))

	ctx := context.Background()
	user := models.User{Username: "traced", PasswordHash: "x"}
	require.NoError(t, db.WithContext(ctx).Create(&user).Error)

	var missing models.User
	err = db.WithContext(ctx).First(&missing, 9999).Error
	require.Error(t, err)

	spans := recorder.Ended()
	insert := spanNamed(spans, "db.insert users")
	require.NotNil(t, insert)
	system, ok := attr(insert, "db.system")
	require.True(t, ok)
	assert.Equal(t, "sqlite", system.AsString())
	stmt, ok := attr(insert, "db.statement")
	require.True(t, ok)
	assert.NotContains(t, stmt.AsString(), "traced", "bound values stay out of spans")

	sel := spanNamed(spans, "db.select users")
	require.NotNil(t, sel)
	assert.NotEqual(t, codes.Error, sel.Status().Code, "not found is not a span error")
}

func TestStartAndEndSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := TraceTranscode(context.Background(), "job-1", 42)
	EndSpan(span, errors.New("ffmpeg failed"))
	_, span = TraceSearch(context.Background(), "videos", "dance")
	EndSpan(span, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "transcode.job", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	id, _ := attr(spans[0], "video.id")
	assert.Equal(t, int64(42), id.AsInt64())
	assert.Equal(t, "search.videos", spans[1].Name())
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestInstrumentedHTTPClient(t *testing.T) {
	recorder := withRecorder(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewInstrumentedHTTPClient("elasticsearch", 0)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	span := spanNamed(recorder.Ended(), "elasticsearch GET")
	require.NotNil(t, span)
	service, ok := attr(span, "external.service")
	require.True(t, ok)
	assert.Equal(t, "elasticsearch", service.AsString())
}

package middleware

import (
	"net/http/httptest"
	"testing"

	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = previous
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(42))
		return c.Next()
	})
	app.Get("/posts/:id/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/posts/7/?page=2", nil), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /posts/:id/", spans[0].Name())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, int64(7), attrs[observability.AttrPostID].AsInt64())
	assert.Equal(t, int64(2), attrs[observability.AttrPageWanted].AsInt64())
	assert.Equal(t, "user42", attrs[observability.AttrViewer].AsString())
	assert.Equal(t, "/posts/:id/", attrs["http.route"].AsString())
}

func TestTracingMiddleware_SkipsProbesAndMedia(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendString("up") })
	app.Get("/group/:slug/", func(c *fiber.Ctx) error { return c.SendString("feed") })

	_, err := app.Test(httptest.NewRequest("GET", "/health/live", nil), -1)
	require.NoError(t, err)
	assert.Empty(t, recorder.Ended())

	_, err = app.Test(httptest.NewRequest("GET", "/group/cats/", nil), -1)
	require.NoError(t, err)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "cats", attrs[observability.AttrGroupSlug].AsString())
	assert.Equal(t, "anon", attrs[observability.AttrViewer].AsString())
}

package middleware

import (
	"strconv"
	"strings"

	"yatube/internal/observability"
	"yatube/internal/pagecache"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// untracedPrefixes are served without a span: probes, scrapes and uploaded files.
var untracedPrefixes = []string{"/health/", "/metrics", "/media/"}

// TracingMiddleware opens a server span per page request and exposes its
// trace ID. The span is renamed to the matched route once the handler ran,
// so "/posts/7/" and "/posts/8/" both land under "GET /posts/:id/".
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, prefix := range untracedPrefixes {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		carrier := propagation.HeaderCarrier{}
		for k, v := range c.GetReqHeaders() {
			carrier[k] = v
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		if rid, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Response().StatusCode()),
			observability.AttrViewer.String(viewer(c)),
		)
		if outcome := c.GetRespHeader(pagecache.StatusHeader); outcome != "" {
			span.SetAttributes(observability.AttrPageCache.String(strings.ToLower(outcome)))
		}
		if page := c.Query("page"); page != "" {
			if n, convErr := strconv.Atoi(page); convErr == nil {
				span.SetAttributes(observability.AttrPageWanted.Int(n))
			}
		}
		if id, convErr := strconv.ParseUint(c.Params("id"), 10, 64); convErr == nil {
			span.SetAttributes(observability.AttrPostID.Int64(int64(id)))
		}
		if slug := c.Params("slug"); slug != "" {
			span.SetAttributes(observability.AttrGroupSlug.String(slug))
		}

		if err != nil {
			span.RecordError(err)
			if fe, ok := err.(*fiber.Error); !ok || fe.Code >= fiber.StatusInternalServerError {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		return err
	}
}

// viewer is "anon" or "user<id>", the same split the page cache keys on.
func viewer(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user" + strconv.FormatUint(uint64(uid), 10)
	}
	return "anon"
}

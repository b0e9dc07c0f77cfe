package telemetry

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const httpScopeName = "debugdiary/http"

// Middleware starts a server span per request and stores its context as the
// request's user context, so services and repositories nest their spans under it.
func Middleware() fiber.Handler {
	tracer := Tracer(httpScopeName)
	requests, _ := Meter(httpScopeName).Int64Counter("diary.http.requests",
		metric.WithDescription("Total HTTP requests served"),
	)

	return func(c *fiber.Ctx) error {
		// Method and path alias fasthttp's request buffer, which is reused
		// once the handler returns; spans are exported later.
		method := utils.CopyString(c.Method())
		path := utils.CopyString(c.Path())

		ctx, span := tracer.Start(c.UserContext(), method+" "+path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", method),
				attribute.String("url.path", path),
			),
		)
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
			span.RecordError(err)
		}
		span.SetName(method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fiber.ErrInternalServerError.Message)
		}
		requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		))
		return err
	}
}

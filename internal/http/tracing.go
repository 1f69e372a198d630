package http

import (
	"context"

	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Tracing starts a Datadog span per request. Spans go nowhere until the
// tracer is started in main.
func Tracing(service string) gin.HandlerFunc {
	return gintrace.Middleware(service)
}

func WithSpan(ctx context.Context, name string, fn func(ctx context.Context)) {
	span, ctx2 := tracer.StartSpanFromContext(ctx, name)
	defer span.Finish()
	fn(ctx2)
}

package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{Enabled: false}, "svc", "v", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpanAndEnd(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "rides.Complete")
	End(span, errors.New("insufficient funds"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "rides.Complete", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
}

func TestMiddleware_CreatesServerSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := installRecorder(t)

	var traced bool
	r := gin.New()
	r.Use(Middleware("schoolrun-api"))
	r.GET("/rides/:id", func(c *gin.Context) {
		traced = trace.SpanContextFromContext(c.Request.Context()).IsValid()
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rides/42", nil))

	assert.True(t, traced)
	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /rides/:id", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
}

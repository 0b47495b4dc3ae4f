package logutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"

	"github.com/lk2023060901/ringercore-go/pkg/log"
)

func TestWithTraceLogger(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTraceLogger(ctx))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	assert.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	assert.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	traced := WithTraceLogger(trace.ContextWithSpanContext(ctx, sc), log.FieldFile("a.rdc"))
	assert.NotEqual(t, log.Ctx(ctx), log.Ctx(traced))
}

package logutil

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
)

const traceIDKey = "traceID"

// WithTraceLogger 在 ctx 的 Logger 中注入当前 span 的 TraceID 及附加字段。
// ctx 中没有合法 span 时只注入 fields。
func WithTraceLogger(ctx context.Context, fields ...zap.Field) context.Context {
	if traceID := trace.SpanContextFromContext(ctx).TraceID(); traceID.IsValid() {
		fields = append(fields, zap.String(traceIDKey, traceID.String()))
	}
	if len(fields) == 0 {
		return ctx
	}
	return log.WithFields(ctx, fields...)
}

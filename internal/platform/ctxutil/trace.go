package ctxutil

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type traceDataKey struct{}

// TraceData identifies one caller-level operation (a CLI invocation, a job run) across the
// routes it touches.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns logger key/values for the operation in ctx. An active span's trace id
// is used when no explicit one was attached.
func LogFields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	var out []interface{}
	traceID := ""
	if td := GetTraceData(ctx); td != nil {
		if td.RequestID != "" {
			out = append(out, "request_id", td.RequestID)
		}
		traceID = td.TraceID
	}
	if traceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
	}
	if traceID != "" {
		out = append(out, "trace_id", traceID)
	}
	return out
}

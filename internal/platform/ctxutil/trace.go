package ctxutil

import "context"

type traceDataKey struct{}

// TraceData is the correlation pair stamped on every request: TraceID ties
// log lines to the OTel trace, RequestID is the client-facing handle echoed
// in responses.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// RequestID returns the stamped request id, or "" outside a request scope.
func RequestID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.RequestID
	}
	return ""
}

package oc

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/amber-emu/amber/internal/log"
)

var DefaultSampler = trace.AlwaysSample()

// SetSpanStatus sets the span status depending on `err`. If `err` is nil
// the status is left as `trace.StatusCodeOK`.
func SetSpanStatus(span *trace.Span, err error) {
	status := trace.Status{}
	if err != nil {
		status.Code = int32(toStatusCode(err))
		status.Message = err.Error()
	}
	span.SetStatus(status)
}

// StartSpan wraps "go.opencensus.io/trace".StartSpan but, if the span is
// sampling, updates the log entry in the context to reference the newly
// created span.
func StartSpan(ctx context.Context, name string, o ...trace.StartOption) (context.Context, *trace.Span) {
	ctx, s := trace.StartSpan(ctx, name, o...)
	if s.IsRecordingEvents() {
		ctx = log.UpdateContext(ctx)
	}

	return ctx, s
}

func spanKindToString(sk int) string {
	switch sk {
	case trace.SpanKindClient:
		return "client"
	case trace.SpanKindServer:
		return "server"
	default:
		return ""
	}
}

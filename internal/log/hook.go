package log

import (
	"time"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/amber-emu/amber/internal/logfields"
)

// DurationFormat converts a time.Duration field to a loggable encoding.
type DurationFormat func(time.Duration) interface{}

// DurationFormatSeconds encodes durations as fractional seconds.
func DurationFormatSeconds(d time.Duration) interface{} { return d.Seconds() }

// Hook formats a [logrus.Entry] before it is logged: time and duration
// fields are normalized, and entries whose context carries an active span
// gain trace correlation fields.
type Hook struct {
	// TimeFormat is the layout for [time.Time] fields.
	// An empty string disables formatting.
	TimeFormat string

	// DurationFormat converts [time.Duration] fields.
	// Nil leaves them as-is.
	DurationFormat DurationFormat

	// AddSpanContext adds [logfields.TraceID] and [logfields.SpanID]
	// fields to the entry from the span context stored in
	// [logrus.Entry.Context], if it exists.
	AddSpanContext bool
}

var _ logrus.Hook = &Hook{}

func NewHook() *Hook {
	return &Hook{
		TimeFormat:     TimeFormat,
		DurationFormat: DurationFormatSeconds,
		AddSpanContext: true,
	}
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	h.encode(e)
	h.addSpanContext(e)

	return nil
}

func (h *Hook) encode(e *logrus.Entry) {
	for k, v := range e.Data {
		switch vv := v.(type) {
		case time.Time:
			if h.TimeFormat != "" {
				e.Data[k] = vv.Format(h.TimeFormat)
			}
		case time.Duration:
			if h.DurationFormat != nil {
				e.Data[k] = h.DurationFormat(vv)
			}
		}
	}
}

func (h *Hook) addSpanContext(e *logrus.Entry) {
	if !h.AddSpanContext || e.Context == nil {
		return
	}
	span := trace.FromContext(e.Context)
	if span == nil {
		return
	}
	sctx := span.SpanContext()
	e.Data[logfields.TraceID] = sctx.TraceID.String()
	e.Data[logfields.SpanID] = sctx.SpanID.String()
}

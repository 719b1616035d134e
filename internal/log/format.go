package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TimeFormat is the layout used for time values in log output.
const TimeFormat = time.RFC3339Nano

func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// Format formats an object into a JSON string, without indentation or HTML
// escaping. The context is used to log a warning if the conversion fails.
//
// This is intended primarily for `trace.StringAttribute()`.
func Format(ctx context.Context, v interface{}) string {
	b, err := encode(v)
	if err != nil {
		G(ctx).WithError(err).Warning("could not format value")
		return ""
	}

	return string(b)
}

func encode(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("could not marshal %T to JSON for logging: %w", v, err)
	}

	// encoder.Encode appends a newline to the end
	return bytes.TrimSpace(buf.Bytes()), nil
}

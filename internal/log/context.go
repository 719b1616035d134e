package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

type entryContextKeyType int

const _entryContextKey entryContextKeyType = iota

var (
	// L is the default, blank logging entry. WithField and friends all
	// return copies of the entry they are called on, so it never
	// accumulates fields. Prefer G or FromContext over using L directly.
	L = logrus.NewEntry(logrus.StandardLogger())

	// G is an alias for FromContext.
	G = FromContext
)

// FromContext returns the logging entry stored in the context, or a default
// entry referencing the context if none is stored.
func FromContext(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(_entryContextKey).(*logrus.Entry); ok {
		return e
	}
	return L.WithContext(ctx)
}

// WithContext stores the entry in the context and returns both. The stored
// entry is a copy that itself references the new context.
func WithContext(ctx context.Context, e *logrus.Entry) (context.Context, *logrus.Entry) {
	e = e.WithContext(ctx)
	return context.WithValue(ctx, _entryContextKey, e), e
}

// UpdateContext re-stores the context's entry so that it references the
// most recent context, picking up values (such as span data) added since
// the entry was first stored.
func UpdateContext(ctx context.Context) context.Context {
	// there is no way to check whether the stored entry references this
	// exact context rather than one of its parents, so re-add it
	// unconditionally
	ctx, _ = WithContext(ctx, FromContext(ctx))
	return ctx
}

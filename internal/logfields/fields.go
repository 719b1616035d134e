package logfields

const (
	// Identifiers

	Name      = "name"
	Operation = "operation"

	ObjectID  = "oid"
	ProcessID = "pid"

	// Guest memory

	Address     = "address"
	BaseAddress = "baseAddress"
	Blocks      = "blocks"
	Offset      = "offset"
	Region      = "region"
	Size        = "size"

	Permissions      = "permissions"
	OtherPermissions = "otherPermissions"

	// Common Misc

	JSON    = "json"
	Options = "options"

	// Time

	Duration  = "duration"
	EndTime   = "endTime"
	StartTime = "startTime"

	// Golang type's

	ExpectedType = "expected-type"

	// logging and tracing

	TraceID      = "traceID"
	SpanID       = "spanID"
	ParentSpanID = "parentSpanID"
)

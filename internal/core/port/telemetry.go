package port

import (
	"context"
	"time"
)

// Span is the subset of a tracing span the core needs.
type Span interface {
	End()
	SetAttributes(attrs map[string]interface{})
	SetStatus(code string, message string)
	RecordError(err error)
}

// Telemetry lets the core emit traces, metrics and business events without
// depending on a concrete backend.
type Telemetry interface {
	// Tracing
	StartRepositorySpan(ctx context.Context, operation string, entity string, attrs map[string]interface{}) (context.Context, Span)
	StartServiceSpan(ctx context.Context, service string, operation string, attrs map[string]interface{}) (context.Context, Span)

	// Repository operations
	RecordRepositoryOperation(ctx context.Context, operation string, entity string, duration time.Duration, err error)
	RecordRepositoryQuery(ctx context.Context, operation string, entity string, query string, args []interface{})

	// Service operations
	RecordServiceOperation(ctx context.Context, service string, operation string, duration time.Duration, err error)

	// Business events
	RecordBusinessEvent(ctx context.Context, event string, entity string, entityID string, metadata map[string]interface{})
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StudyEvents traces domain operations above the HTTP and DB layers.
type StudyEvents struct {
	tracer trace.Tracer
}

// NewStudyEvents creates a study events tracer
func NewStudyEvents() *StudyEvents {
	return &StudyEvents{tracer: otel.Tracer("study-events")}
}

// TraceSessionTransition spans consent, ensure and end-session operations.
func (e *StudyEvents) TraceSessionTransition(ctx context.Context, op, participantID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "session."+op,
		trace.WithAttributes(
			attribute.String("study.participant_id", participantID),
		),
	)
}

// TraceTracking spans query/click/scroll/hover writes.
func (e *StudyEvents) TraceTracking(ctx context.Context, op, sessionID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "tracking."+op,
		trace.WithAttributes(
			attribute.String("study.session_id", sessionID),
		),
	)
}

// TraceSubmission spans a final page submission.
func (e *StudyEvents) TraceSubmission(ctx context.Context, kind, participantID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "submission."+kind,
		trace.WithAttributes(
			attribute.String("study.submission_kind", kind),
			attribute.String("study.participant_id", participantID),
		),
	)
}

// End closes span, recording err when non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

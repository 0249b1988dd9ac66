// Package tracing provides OpenTelemetry helpers shared by all Lambda
// functions: tracer provider setup for the ADOT Lambda layer, span helpers,
// and typed span attributes for the learning domain.
package tracing

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "swin-learning"

// Init creates a TracerProvider configured for X-Ray via the ADOT collector.
func Init(ctx context.Context) (*sdktrace.TracerProvider, error) {
	return xrayconfig.NewTracerProvider(ctx)
}

// StartColdStartSpan starts a span covering function initialisation so the
// AWS client setup calls in main() appear as children.
func StartColdStartSpan(ctx context.Context, functionName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "ColdStart",
		trace.WithAttributes(Function(functionName)),
	)
}

// StartHandlerSpan starts the top-level span for a handler invocation.
func StartHandlerSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records err on the span and marks the span status as error.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Function identifies the Lambda function emitting the span.
func Function(name string) attribute.KeyValue {
	return attribute.String("function", name)
}

// RequestID carries the Lambda request ID.
func RequestID(id string) attribute.KeyValue {
	return attribute.String("request_id", id)
}

// EmployeeID carries the employee record key.
func EmployeeID(id string) attribute.KeyValue {
	return attribute.String("employee_id", id)
}

// LessonID carries the lesson record key.
func LessonID(id string) attribute.KeyValue {
	return attribute.String("lesson_id", id)
}

// Topic carries the resolved lesson topic.
func Topic(topic string) attribute.KeyValue {
	return attribute.String("lesson.topic", topic)
}

// ModelRoute carries the Bedrock model identifier or inference profile ARN
// the generation call was routed to.
func ModelRoute(route string) attribute.KeyValue {
	return attribute.String("bedrock.route", route)
}

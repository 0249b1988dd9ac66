package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRequestID(t *testing.T) {
	attr := RequestID("test-request-123")

	if attr.Key != "request_id" {
		t.Errorf("expected key 'request_id', got %q", attr.Key)
	}
	if attr.Value.AsString() != "test-request-123" {
		t.Errorf("expected value 'test-request-123', got %q", attr.Value.AsString())
	}
}

func TestEmployeeID(t *testing.T) {
	attr := EmployeeID("E1")

	if attr.Key != "employee_id" {
		t.Errorf("expected key 'employee_id', got %q", attr.Key)
	}
	if attr.Value.AsString() != "E1" {
		t.Errorf("expected value 'E1', got %q", attr.Value.AsString())
	}
}

func TestTopic(t *testing.T) {
	attr := Topic("Excel")

	if attr.Key != "lesson.topic" {
		t.Errorf("expected key 'lesson.topic', got %q", attr.Key)
	}
	if attr.Value.AsString() != "Excel" {
		t.Errorf("expected value 'Excel', got %q", attr.Value.AsString())
	}
}

func TestModelRoute(t *testing.T) {
	attr := ModelRoute("us.meta.llama4-maverick-17b-instruct-v1:0")

	if attr.Key != "bedrock.route" {
		t.Errorf("expected key 'bedrock.route', got %q", attr.Key)
	}
	if attr.Value.AsString() != "us.meta.llama4-maverick-17b-instruct-v1:0" {
		t.Errorf("expected model id value, got %q", attr.Value.AsString())
	}
}

func TestStartHandlerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()

	_, span := StartHandlerSpan(ctx, "TestHandler",
		RequestID("req-123"),
		EmployeeID("E1"),
	)
	span.End()

	tp.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name != "TestHandler" {
		t.Errorf("expected span name 'TestHandler', got %q", s.Name)
	}

	attrMap := make(map[string]string)
	for _, attr := range s.Attributes {
		attrMap[string(attr.Key)] = attr.Value.AsString()
	}

	if attrMap["request_id"] != "req-123" {
		t.Errorf("expected request_id 'req-123', got %q", attrMap["request_id"])
	}
	if attrMap["employee_id"] != "E1" {
		t.Errorf("expected employee_id 'E1', got %q", attrMap["employee_id"])
	}
}

func TestRecordError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()
	tracer := otel.Tracer("test")
	_, span := tracer.Start(ctx, "TestSpan")

	testErr := &testError{message: "something went wrong"}
	RecordError(span, testErr)
	span.End()

	tp.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if len(s.Events) == 0 {
		t.Error("expected at least one event (error), got none")
	}
	if s.Status.Code != codes.Error {
		t.Errorf("expected error status code %d, got %d", codes.Error, s.Status.Code)
	}
}

type testError struct {
	message string
}

func (e *testError) Error() string {
	return e.message
}

func TestStartColdStartSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	_, span := StartColdStartSpan(context.Background(), "lesson-deliver")
	span.End()

	tp.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "ColdStart" {
		t.Errorf("expected span name 'ColdStart', got %q", spans[0].Name)
	}

	attrMap := make(map[string]string)
	for _, attr := range spans[0].Attributes {
		attrMap[string(attr.Key)] = attr.Value.AsString()
	}
	if attrMap["function"] != "lesson-deliver" {
		t.Errorf("expected function 'lesson-deliver', got %q", attrMap["function"])
	}
}

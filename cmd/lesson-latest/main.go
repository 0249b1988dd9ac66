package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pehyanbin/swin-learning/internal/apperr"
	"github.com/pehyanbin/swin-learning/internal/lesson"
	"github.com/pehyanbin/swin-learning/internal/logging"
	"github.com/pehyanbin/swin-learning/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
)

var logger = logging.New()

// Request is the pending-lessons invocation payload.
type Request struct {
	UserID string `json:"userId"`
}

// Response is the HTTP-style invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody lists the employee's not-yet-finished lessons.
type SuccessBody struct {
	Lessons []lesson.Lesson `json:"lessons"`
}

// LessonStore lists pending lessons
type LessonStore interface {
	ListPending(ctx context.Context, employeeID string) ([]lesson.Lesson, error)
}

// Dependencies for handler (injectable for testing)
type Dependencies struct {
	Lessons LessonStore
}

var deps *Dependencies

// handler returns the employee's pending lessons.
func handler(ctx context.Context, request Request) (Response, error) {
	ctx, span := tracing.StartHandlerSpan(ctx, "LessonLatestHandler",
		tracing.Function("lesson-latest"),
		tracing.EmployeeID(request.UserID),
	)
	defer span.End()

	if request.UserID == "" {
		err := apperr.Validation("Missing userId")
		tracing.RecordError(span, err)
		return errorResponse(apperr.StatusOf(err), err.Error()), nil
	}

	lessons, err := deps.Lessons.ListPending(ctx, request.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "DynamoDB query failed",
			slog.String("user_id", request.UserID),
			slog.String("error", err.Error()),
		)
		wrapped := apperr.Dependency("Database error", err)
		tracing.RecordError(span, wrapped)
		return errorResponse(apperr.StatusOf(wrapped), wrapped.Error()), nil
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}

	body, err := json.Marshal(SuccessBody{Lessons: lessons})
	if err != nil {
		return errorResponse(500, "Internal error"), nil
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

// errorResponse builds an error response with a JSON-encoded message body
func errorResponse(statusCode int, message string) Response {
	body, _ := json.Marshal(message)
	return Response{StatusCode: statusCode, Body: string(body)}
}

func main() {
	ctx := context.Background()

	tp, err := tracing.Init(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize tracer provider",
			slog.String("error", err.Error()),
		)
		panic(err)
	}
	otel.SetTracerProvider(tp)

	ctx, coldStartSpan := tracing.StartColdStartSpan(ctx, "lesson-latest")
	defer coldStartSpan.End()

	lessonTable := os.Getenv("LESSON_TABLE")
	if lessonTable == "" {
		logger.Error("FATAL: LESSON_TABLE environment variable is required")
		panic("LESSON_TABLE environment variable is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config",
			slog.String("error", err.Error()),
		)
		panic(err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)

	deps = &Dependencies{
		Lessons: lesson.NewStore(dynamodb.NewFromConfig(cfg), lessonTable),
	}

	lambda.Start(otellambda.InstrumentHandler(handler, xrayconfig.WithRecommendedOptions(tp)...))
}

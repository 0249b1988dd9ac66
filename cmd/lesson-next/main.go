package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/pehyanbin/swin-learning/internal/apperr"
	"github.com/pehyanbin/swin-learning/internal/bedrock"
	"github.com/pehyanbin/swin-learning/internal/employee"
	"github.com/pehyanbin/swin-learning/internal/lesson"
	"github.com/pehyanbin/swin-learning/internal/logging"
	"github.com/pehyanbin/swin-learning/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.New()

// Request is the next-lesson invocation payload: the lesson the employee
// just finished.
type Request struct {
	UserID   string `json:"userId"`
	LessonID string `json:"lessonID"`
}

// Response is the HTTP-style invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody carries the follow-up lesson back to the caller.
type SuccessBody struct {
	Message   string         `json:"message"`
	NewLesson *lesson.Lesson `json:"newLesson"`
}

// EventPayload represents a lesson lifecycle event sent to the events queue
type EventPayload struct {
	EventType  string         `json:"eventType"`
	OccurredAt string         `json:"occurredAt"`
	EmployeeID string         `json:"employeeId"`
	Data       map[string]any `json:"data,omitempty"`
}

// EmployeeStore provides the employee's learning summary
type EmployeeStore interface {
	Get(ctx context.Context, employeeID string) (*employee.Record, error)
}

// LessonStore handles lesson record operations
type LessonStore interface {
	Get(ctx context.Context, employeeID, lessonID string) (*lesson.Lesson, error)
	Put(ctx context.Context, employeeID string, l *lesson.Lesson) error
	MarkDone(ctx context.Context, employeeID, lessonID, finishedAt string) error
}

// ChatGenerator handles Bedrock generation calls
type ChatGenerator interface {
	GenerateChat(ctx context.Context, route bedrock.Route, prompt string, cfg bedrock.ChatConfig) (string, error)
}

// EventPublisher publishes lesson lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, payload EventPayload) error
}

// SQSClient is the interface for SQS operations
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSEventPublisher publishes events to the configured SQS queue
type SQSEventPublisher struct {
	sqsClient SQSClient
	queueURL  string
}

// Publish sends the event to the events queue
func (p *SQSEventPublisher) Publish(ctx context.Context, payload EventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	_, err = p.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	return err
}

// Dependencies for handler (injectable for testing). Events is optional;
// nil disables publishing.
type Dependencies struct {
	Employees     EmployeeStore
	Lessons       LessonStore
	Generator     ChatGenerator
	Events        EventPublisher
	RouteDefaults bedrock.RouteRequest
	NewLessonID   func() string
	Now           func() time.Time
}

var deps *Dependencies

func newLessonID() string {
	return "LESSON#" + uuid.NewString()
}

// handler marks the finished lesson done and generates the follow-up lesson
// from the employee's learning summary.
func handler(ctx context.Context, request Request) (Response, error) {
	ctx, span := tracing.StartHandlerSpan(ctx, "LessonNextHandler",
		tracing.Function("lesson-next"),
		tracing.EmployeeID(request.UserID),
		tracing.LessonID(request.LessonID),
	)
	defer span.End()

	result, err := next(ctx, request)
	if err != nil {
		tracing.RecordError(span, err)
		return errorResponse(apperr.StatusOf(err), err.Error()), nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return errorResponse(500, "Internal error"), nil
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

func next(ctx context.Context, request Request) (*SuccessBody, error) {
	if request.UserID == "" {
		return nil, apperr.Validation("Missing userId")
	}
	if request.LessonID == "" {
		return nil, apperr.Validation("Missing lessonID")
	}

	record, err := deps.Employees.Get(ctx, request.UserID)
	if err != nil {
		return nil, apperr.Dependency("Database error", err)
	}
	summary := ""
	if record != nil {
		summary = record.SummaryText
	}

	completed, err := deps.Lessons.Get(ctx, request.UserID, request.LessonID)
	if err != nil {
		return nil, apperr.Dependency("Database error", err)
	}
	if completed == nil {
		return nil, apperr.NotFound(fmt.Sprintf("Lesson %s not found", request.LessonID))
	}

	now := deps.Now().UTC()
	finishedAt := now.Format(time.RFC3339)
	if err := deps.Lessons.MarkDone(ctx, request.UserID, request.LessonID, finishedAt); err != nil {
		logger.ErrorContext(ctx, "Failed to mark lesson done",
			slog.String("user_id", request.UserID),
			slog.String("lesson_id", request.LessonID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("Failed to update lesson", err)
	}

	newID := deps.NewLessonID()
	route := bedrock.ResolveRoute(bedrock.RouteRequest{}, deps.RouteDefaults)
	trace.SpanFromContext(ctx).SetAttributes(tracing.ModelRoute(route.String()))

	text, err := deps.Generator.GenerateChat(ctx, route, lesson.NextLessonPrompt(summary, completed, newID, request.UserID), bedrock.ChatConfig{
		MaxTokens:   800,
		Temperature: 0.7,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Bedrock generation failed",
			slog.String("user_id", request.UserID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("AI generation failed: "+err.Error(), err)
	}

	raw, err := bedrock.ExtractJSONObject(text)
	if err != nil {
		return nil, apperr.Parse("no JSON object in model output", err)
	}
	generated, err := lesson.Decode([]byte(raw))
	if err != nil {
		return nil, apperr.Parse("model output is not a valid lesson", err)
	}

	generated.LessonID = newID
	generated.UserID = request.UserID
	generated.Done = false
	generated.FinishedAt = ""
	if generated.CreatedAt == "" {
		generated.CreatedAt = finishedAt
	}
	if generated.Quiz != nil {
		generated.Quiz.IsVisible = false
	}

	if err := deps.Lessons.Put(ctx, request.UserID, generated); err != nil {
		logger.ErrorContext(ctx, "Failed to persist lesson",
			slog.String("user_id", request.UserID),
			slog.String("lesson_id", newID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("Failed to save lesson", err)
	}
	logger.InfoContext(ctx, "Next lesson created",
		slog.String("user_id", request.UserID),
		slog.String("completed_lesson_id", request.LessonID),
		slog.String("lesson_id", newID),
		slog.String("topic", generated.Topic),
	)

	// Event publishing is best-effort; the lesson is already persisted.
	if deps.Events != nil {
		err := deps.Events.Publish(ctx, EventPayload{
			EventType:  "lesson.created",
			OccurredAt: finishedAt,
			EmployeeID: request.UserID,
			Data: map[string]any{
				"lessonId": newID,
				"topic":    generated.Topic,
			},
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish event",
				slog.String("event_type", "lesson.created"),
				slog.String("error", err.Error()),
			)
		}
	}

	return &SuccessBody{Message: "Next lesson generated", NewLesson: generated}, nil
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

	ctx, coldStartSpan := tracing.StartColdStartSpan(ctx, "lesson-next")
	defer coldStartSpan.End()

	employeeTable := os.Getenv("EMPLOYEE_TABLE")
	if employeeTable == "" {
		logger.Error("FATAL: EMPLOYEE_TABLE environment variable is required")
		panic("EMPLOYEE_TABLE environment variable is required")
	}
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

	dynamoClient := dynamodb.NewFromConfig(cfg)
	bedrockClient := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if region := os.Getenv("BEDROCK_REGION"); region != "" {
			o.Region = region
		}
	})

	deps = &Dependencies{
		Employees: employee.NewStore(dynamoClient, employeeTable),
		Lessons:   lesson.NewStore(dynamoClient, lessonTable),
		Generator: bedrock.NewClient(bedrockClient),
		RouteDefaults: bedrock.RouteRequest{
			ModelID:             os.Getenv("MODEL_ID"),
			ModelName:           os.Getenv("MODEL_NAME"),
			InferenceProfileARN: os.Getenv("INFERENCE_PROFILE_ARN"),
		},
		NewLessonID: newLessonID,
		Now:         time.Now,
	}

	if queueURL := os.Getenv("EVENTS_QUEUE_URL"); queueURL != "" {
		deps.Events = &SQSEventPublisher{
			sqsClient: sqs.NewFromConfig(cfg),
			queueURL:  queueURL,
		}
	}

	lambda.Start(otellambda.InstrumentHandler(handler, xrayconfig.WithRecommendedOptions(tp)...))
}

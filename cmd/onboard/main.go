package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/pehyanbin/swin-learning/internal/apperr"
	"github.com/pehyanbin/swin-learning/internal/bedrock"
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

// Request is the onboarding invocation payload. Answers holds the employee's
// responses to the four onboarding questions, in order.
type Request struct {
	UserID       string   `json:"userId"`
	Answers      []string `json:"answers"`
	CurrentLevel string   `json:"currentLevel,omitempty"`
}

// Response is the HTTP-style invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody carries the first generated lesson back to the caller.
type SuccessBody struct {
	Message string         `json:"message"`
	Lesson  *lesson.Lesson `json:"lesson"`
}

// ChatGenerator handles Bedrock generation calls
type ChatGenerator interface {
	GenerateChat(ctx context.Context, route bedrock.Route, prompt string, cfg bedrock.ChatConfig) (string, error)
}

// LessonStore persists generated lessons
type LessonStore interface {
	Put(ctx context.Context, employeeID string, l *lesson.Lesson) error
}

// Dependencies for handler (injectable for testing)
type Dependencies struct {
	Generator     ChatGenerator
	Lessons       LessonStore
	RouteDefaults bedrock.RouteRequest
	NewLessonID   func() string
	Now           func() time.Time
}

var deps *Dependencies

func newLessonID() string {
	return "LESSON#" + uuid.NewString()
}

// handler generates the employee's first lesson from the onboarding answers
// and persists it.
func handler(ctx context.Context, request Request) (Response, error) {
	ctx, span := tracing.StartHandlerSpan(ctx, "OnboardHandler",
		tracing.Function("onboard"),
		tracing.EmployeeID(request.UserID),
	)
	defer span.End()

	result, err := onboard(ctx, request)
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

func onboard(ctx context.Context, request Request) (*SuccessBody, error) {
	if request.UserID == "" {
		return nil, apperr.Validation("Missing userId")
	}
	if len(request.Answers) != 4 {
		return nil, apperr.Validation("Exactly 4 onboarding answers are required")
	}

	route := bedrock.ResolveRoute(bedrock.RouteRequest{}, deps.RouteDefaults)
	trace.SpanFromContext(ctx).SetAttributes(tracing.ModelRoute(route.String()))

	text, err := deps.Generator.GenerateChat(ctx, route, lesson.OnboardingPrompt(request.UserID, request.Answers), bedrock.ChatConfig{
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

	generated.LessonID = deps.NewLessonID()
	generated.UserID = request.UserID
	generated.Done = false
	if generated.Level == "" {
		generated.Level = request.CurrentLevel
	}
	if generated.CreatedAt == "" {
		generated.CreatedAt = deps.Now().UTC().Format(time.RFC3339)
	}
	// The quiz ships hidden regardless of what the model produced.
	if generated.Quiz != nil {
		generated.Quiz.IsVisible = false
	}

	if err := deps.Lessons.Put(ctx, request.UserID, generated); err != nil {
		logger.ErrorContext(ctx, "Failed to persist lesson",
			slog.String("user_id", request.UserID),
			slog.String("lesson_id", generated.LessonID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("Failed to save lesson", err)
	}
	logger.InfoContext(ctx, "Onboarding lesson created",
		slog.String("user_id", request.UserID),
		slog.String("lesson_id", generated.LessonID),
		slog.String("topic", generated.Topic),
	)

	return &SuccessBody{Message: "Learning path created", Lesson: generated}, nil
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

	ctx, coldStartSpan := tracing.StartColdStartSpan(ctx, "onboard")
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

	bedrockClient := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if region := os.Getenv("BEDROCK_REGION"); region != "" {
			o.Region = region
		}
	})

	deps = &Dependencies{
		Generator: bedrock.NewClient(bedrockClient),
		Lessons:   lesson.NewStore(dynamodb.NewFromConfig(cfg), lessonTable),
		RouteDefaults: bedrock.RouteRequest{
			ModelID:             os.Getenv("MODEL_ID"),
			ModelName:           os.Getenv("MODEL_NAME"),
			InferenceProfileARN: os.Getenv("INFERENCE_PROFILE_ARN"),
		},
		NewLessonID: newLessonID,
		Now:         time.Now,
	}

	lambda.Start(otellambda.InstrumentHandler(handler, xrayconfig.WithRecommendedOptions(tp)...))
}

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/pehyanbin/swin-learning/internal/apperr"
	"github.com/pehyanbin/swin-learning/internal/bedrock"
	"github.com/pehyanbin/swin-learning/internal/lesson"
	"github.com/pehyanbin/swin-learning/internal/logging"
	"github.com/pehyanbin/swin-learning/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
)

var logger = logging.New()

// Response is the API Gateway proxy response
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// TextGenerator handles Bedrock text generation calls
type TextGenerator interface {
	GenerateText(ctx context.Context, route bedrock.Route, prompt string, cfg bedrock.TextConfig) (string, error)
}

// Dependencies for handler (injectable for testing)
type Dependencies struct {
	Generator     TextGenerator
	RouteDefaults bedrock.RouteRequest
	Now           func() time.Time
}

var deps *Dependencies

func corsHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "OPTIONS,POST",
	}
}

// handler generates a structured lesson for the profile in the request body.
// Every failure maps to a single 500 shape so the frontend has one error
// path to handle.
func handler(ctx context.Context, request events.APIGatewayProxyRequest) (Response, error) {
	ctx, span := tracing.StartHandlerSpan(ctx, "LessonGenerateHandler",
		tracing.Function("lesson-generate"),
		tracing.RequestID(request.RequestContext.RequestID),
	)
	defer span.End()

	if request.HTTPMethod == "OPTIONS" {
		return Response{StatusCode: 200, Headers: corsHeaders(), Body: ""}, nil
	}

	body, err := generate(ctx, request.Body)
	if err != nil {
		tracing.RecordError(span, err)
		logger.ErrorContext(ctx, "Lesson generation failed",
			slog.String("request_id", request.RequestContext.RequestID),
			slog.String("error", err.Error()),
		)
		errBody, _ := json.Marshal(map[string]string{
			"error":   err.Error(),
			"message": "Failed to generate lesson",
		})
		return Response{StatusCode: 500, Headers: corsHeaders(), Body: string(errBody)}, nil
	}

	return Response{StatusCode: 200, Headers: corsHeaders(), Body: body}, nil
}

func generate(ctx context.Context, requestBody string) (string, error) {
	var profile lesson.Profile
	if requestBody != "" {
		if err := json.Unmarshal([]byte(requestBody), &profile); err != nil {
			return "", apperr.Parse("invalid request body", err)
		}
	}
	profile = profile.WithDefaults()

	route := bedrock.ResolveRoute(bedrock.RouteRequest{}, deps.RouteDefaults)

	text, err := deps.Generator.GenerateText(ctx, route, lesson.GenerationPrompt(profile), bedrock.TextConfig{
		MaxTokenCount: 800,
		Temperature:   0.7,
		TopP:          0.9,
	})
	if err != nil {
		return "", apperr.Dependency("bedrock invocation failed", err)
	}
	logger.InfoContext(ctx, "Generated structured lesson",
		slog.String("user_id", profile.UserID),
		slog.String("route", route.String()),
	)

	raw, err := bedrock.ExtractJSONObject(text)
	if err != nil {
		return "", apperr.Parse("no JSON object in model output", err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", apperr.Parse("model output is not valid JSON", err)
	}
	lesson.StampCreatedAt(obj, deps.Now())

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", apperr.Parse("failed to encode lesson", err)
	}
	return string(pretty), nil
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

	ctx, coldStartSpan := tracing.StartColdStartSpan(ctx, "lesson-generate")
	defer coldStartSpan.End()

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
		RouteDefaults: bedrock.RouteRequest{
			ModelID:             os.Getenv("MODEL_ID"),
			InferenceProfileARN: os.Getenv("INFERENCE_PROFILE_ARN"),
		},
		Now: time.Now,
	}

	lambda.Start(otellambda.InstrumentHandler(handler, xrayconfig.WithRecommendedOptions(tp)...))
}

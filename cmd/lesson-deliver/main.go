package main

import (
	"bytes"
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
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/pehyanbin/swin-learning/internal/apperr"
	"github.com/pehyanbin/swin-learning/internal/bedrock"
	"github.com/pehyanbin/swin-learning/internal/employee"
	"github.com/pehyanbin/swin-learning/internal/lesson"
	"github.com/pehyanbin/swin-learning/internal/logging"
	"github.com/pehyanbin/swin-learning/internal/mailer"
	"github.com/pehyanbin/swin-learning/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.New()

// Request is the lesson delivery invocation payload.
type Request struct {
	EmployeeID          string `json:"employeeID"`
	ModelID             string `json:"modelId,omitempty"`
	ModelName           string `json:"modelName,omitempty"`
	InferenceProfileARN string `json:"inferenceProfileArn,omitempty"`
}

// Response is the HTTP-style invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody is the delivery confirmation.
type SuccessBody struct {
	Message string `json:"message"`
	Topic   string `json:"topic"`
	Email   string `json:"email"`
}

// EmployeeStore handles employee record operations
type EmployeeStore interface {
	Get(ctx context.Context, employeeID string) (*employee.Record, error)
	IncrementProgress(ctx context.Context, employeeID, date string) error
}

// LessonGenerator handles Bedrock generation calls
type LessonGenerator interface {
	GenerateChat(ctx context.Context, route bedrock.Route, prompt string, cfg bedrock.ChatConfig) (string, error)
}

// MailSender delivers the composed lesson email
type MailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// MetricsPublisher publishes metrics to CloudWatch
type MetricsPublisher interface {
	PublishMetric(ctx context.Context, name string, value float64) error
}

// LessonArchiver stores rendered lesson HTML
type LessonArchiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// Dependencies for handler (injectable for testing). Metrics and Archiver
// are optional; nil disables them.
type Dependencies struct {
	Employees     EmployeeStore
	Generator     LessonGenerator
	Mailer        MailSender
	Metrics       MetricsPublisher
	Archiver      LessonArchiver
	RouteDefaults bedrock.RouteRequest
}

var deps *Dependencies

// handler runs one lesson delivery and converts any error to a status code
// plus message at this boundary.
func handler(ctx context.Context, request Request) (Response, error) {
	ctx, span := tracing.StartHandlerSpan(ctx, "LessonDeliverHandler",
		tracing.Function("lesson-deliver"),
		tracing.EmployeeID(request.EmployeeID),
	)
	defer span.End()

	result, err := deliver(ctx, request)
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

func deliver(ctx context.Context, request Request) (*SuccessBody, error) {
	if request.EmployeeID == "" {
		return nil, apperr.Validation("Missing employeeID")
	}

	record, err := deps.Employees.Get(ctx, request.EmployeeID)
	if err != nil {
		logger.ErrorContext(ctx, "DynamoDB error",
			slog.String("employee_id", request.EmployeeID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("Database error", err)
	}
	if record == nil {
		return nil, apperr.NotFound(fmt.Sprintf("Employee %s not found", request.EmployeeID))
	}
	if record.Email == "" {
		return nil, apperr.Validation("Employee email missing")
	}

	topic := lesson.DeriveTopic(record.SkillGaps)
	route := bedrock.ResolveRoute(bedrock.RouteRequest{
		ModelID:             request.ModelID,
		ModelName:           request.ModelName,
		InferenceProfileARN: request.InferenceProfileARN,
	}, deps.RouteDefaults)

	trace.SpanFromContext(ctx).SetAttributes(
		tracing.Topic(topic),
		tracing.ModelRoute(route.String()),
	)

	text, err := deps.Generator.GenerateChat(ctx, route, lesson.DeliveryPrompt(topic), bedrock.ChatConfig{
		MaxTokens:   400,
		Temperature: 0.7,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Bedrock generation failed",
			slog.String("route", route.String()),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("AI generation failed: "+err.Error(), err)
	}
	logger.InfoContext(ctx, "Generated lesson",
		slog.String("route", route.String()),
		slog.String("topic", topic),
	)

	now := time.Now()
	subject, html := mailer.ComposeLessonEmail(topic, text, now)
	if err := deps.Mailer.Send(ctx, record.Email, subject, html); err != nil {
		logger.ErrorContext(ctx, "SES error",
			slog.String("email", record.Email),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Dependency("Failed to send email", err)
	}
	logger.InfoContext(ctx, "Email sent", slog.String("email", record.Email))

	// Delivery is authoritative; everything below is best-effort
	// bookkeeping and must not fail the request.
	if deps.Archiver != nil {
		key := fmt.Sprintf("lessons/%s/%s.html", request.EmployeeID, now.UTC().Format("2006-01-02T15-04-05Z"))
		if err := deps.Archiver.Archive(ctx, key, []byte(html)); err != nil {
			logger.WarnContext(ctx, "Failed to archive lesson",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := deps.Employees.IncrementProgress(ctx, request.EmployeeID, now.Format("2006-01-02")); err != nil {
		logger.ErrorContext(ctx, "DynamoDB update failed",
			slog.String("employee_id", request.EmployeeID),
			slog.String("error", err.Error()),
		)
	} else {
		logger.InfoContext(ctx, "Progress updated", slog.String("employee_id", request.EmployeeID))
	}

	if deps.Metrics != nil {
		if err := deps.Metrics.PublishMetric(ctx, "LessonsDelivered", 1); err != nil {
			logger.WarnContext(ctx, "Failed to publish metric",
				slog.String("error", err.Error()),
			)
		}
	}

	return &SuccessBody{
		Message: "Lesson delivered successfully",
		Topic:   topic,
		Email:   record.Email,
	}, nil
}

// errorResponse builds an error response with a JSON-encoded message body
func errorResponse(statusCode int, message string) Response {
	body, _ := json.Marshal(message)
	return Response{StatusCode: statusCode, Body: string(body)}
}

// =============================================================================
// Real implementations
// =============================================================================

// CloudWatchMetricsPublisher implements MetricsPublisher using CloudWatch
type CloudWatchMetricsPublisher struct {
	client    *cloudwatch.Client
	namespace string
}

// NewCloudWatchMetricsPublisher creates a new CloudWatchMetricsPublisher
func NewCloudWatchMetricsPublisher(client *cloudwatch.Client, namespace string) *CloudWatchMetricsPublisher {
	return &CloudWatchMetricsPublisher{client: client, namespace: namespace}
}

// PublishMetric publishes a count metric to CloudWatch
func (p *CloudWatchMetricsPublisher) PublishMetric(ctx context.Context, name string, value float64) error {
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	})
	return err
}

// S3LessonArchive implements LessonArchiver using S3
type S3LessonArchive struct {
	client     *s3.Client
	bucketName string
}

// NewS3LessonArchive creates a new S3LessonArchive
func NewS3LessonArchive(client *s3.Client, bucketName string) *S3LessonArchive {
	return &S3LessonArchive{client: client, bucketName: bucketName}
}

// Archive stores the rendered lesson HTML
func (a *S3LessonArchive) Archive(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html"),
	})
	return err
}

// readSenderParameter resolves the sender address from SSM Parameter Store
func readSenderParameter(ctx context.Context, client *ssm.Client, name string) (string, error) {
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return "", err
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter value is empty")
	}
	return *result.Parameter.Value, nil
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

	// Cold start span - all init AWS calls become children
	ctx, coldStartSpan := tracing.StartColdStartSpan(ctx, "lesson-deliver")
	defer coldStartSpan.End()

	employeeTable := os.Getenv("EMPLOYEE_TABLE")
	if employeeTable == "" {
		logger.Error("FATAL: EMPLOYEE_TABLE environment variable is required")
		panic("EMPLOYEE_TABLE environment variable is required")
	}

	sender := os.Getenv("SENDER_EMAIL")
	senderParam := os.Getenv("SENDER_EMAIL_PARAMETER")
	if sender == "" && senderParam == "" {
		logger.Error("FATAL: SENDER_EMAIL or SENDER_EMAIL_PARAMETER environment variable is required")
		panic("SENDER_EMAIL or SENDER_EMAIL_PARAMETER environment variable is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config",
			slog.String("error", err.Error()),
		)
		panic(err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)

	if senderParam != "" {
		sender, err = readSenderParameter(ctx, ssm.NewFromConfig(cfg), senderParam)
		if err != nil {
			logger.Error("FATAL: Failed to read sender parameter",
				slog.String("parameter", senderParam),
				slog.String("error", err.Error()),
			)
			panic(err)
		}
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)
	// Bedrock and SES can live in different regions than the record store.
	bedrockClient := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if region := os.Getenv("BEDROCK_REGION"); region != "" {
			o.Region = region
		}
	})
	sesClient := sesv2.NewFromConfig(cfg, func(o *sesv2.Options) {
		if region := os.Getenv("SES_REGION"); region != "" {
			o.Region = region
		}
	})

	deps = &Dependencies{
		Employees: employee.NewStore(dynamoClient, employeeTable),
		Generator: bedrock.NewClient(bedrockClient),
		Mailer:    mailer.New(sesClient, sender),
		RouteDefaults: bedrock.RouteRequest{
			ModelID:             os.Getenv("MODEL_ID"),
			ModelName:           os.Getenv("MODEL_NAME"),
			InferenceProfileARN: os.Getenv("INFERENCE_PROFILE_ARN"),
		},
	}

	if bucket := os.Getenv("LESSON_ARCHIVE_BUCKET"); bucket != "" {
		deps.Archiver = NewS3LessonArchive(s3.NewFromConfig(cfg), bucket)
	}
	if namespace := os.Getenv("METRIC_NAMESPACE"); namespace != "" {
		deps.Metrics = NewCloudWatchMetricsPublisher(cloudwatch.NewFromConfig(cfg), namespace)
	}

	lambda.Start(otellambda.InstrumentHandler(handler, xrayconfig.WithRecommendedOptions(tp)...))
}

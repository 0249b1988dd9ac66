package lesson

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the DynamoDB surface the lesson store needs.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store accesses the lesson table, keyed by employeeID (partition) and
// lessonID (sort). Nested lesson structures are stored as JSON strings.
type Store struct {
	client    DynamoDBAPI
	tableName string
}

// NewStore creates a Store for the given lesson table.
func NewStore(client DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Put writes a lesson item.
func (s *Store) Put(ctx context.Context, employeeID string, l *Lesson) error {
	subTopics, err := json.Marshal(l.SubTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal subTopics: %w", err)
	}
	theories, err := json.Marshal(l.Theories)
	if err != nil {
		return fmt.Errorf("failed to marshal theories: %w", err)
	}
	quiz, err := json.Marshal(l.Quiz)
	if err != nil {
		return fmt.Errorf("failed to marshal quiz: %w", err)
	}

	item := map[string]types.AttributeValue{
		"employeeID":      &types.AttributeValueMemberS{Value: employeeID},
		"lessonID":        &types.AttributeValueMemberS{Value: l.LessonID},
		"topic":           &types.AttributeValueMemberS{Value: l.Topic},
		"subTopics":       &types.AttributeValueMemberS{Value: string(subTopics)},
		"theories":        &types.AttributeValueMemberS{Value: string(theories)},
		"quiz":            &types.AttributeValueMemberS{Value: string(quiz)},
		"durationMinutes": &types.AttributeValueMemberN{Value: strconv.Itoa(l.DurationMinutes)},
		"level":           &types.AttributeValueMemberS{Value: l.Level},
		"feedback":        &types.AttributeValueMemberS{Value: l.Feedback},
		"createdAt":       &types.AttributeValueMemberS{Value: l.CreatedAt},
		"done":            &types.AttributeValueMemberBOOL{Value: l.Done},
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

// Get fetches one lesson. Returns nil without error when absent.
func (s *Store) Get(ctx context.Context, employeeID, lessonID string) (*Lesson, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(employeeID, lessonID),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, nil
	}
	return itemToLesson(result.Item), nil
}

// MarkDone flags a lesson as completed and records when.
func (s *Store) MarkDone(ctx context.Context, employeeID, lessonID, finishedAt string) error {
	update := expression.Set(
		expression.Name("done"),
		expression.Value(true),
	).Set(
		expression.Name("finishedAt"),
		expression.Value(finishedAt),
	)

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(employeeID, lessonID),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

// ListPending returns the employee's lessons not yet marked done.
func (s *Store) ListPending(ctx context.Context, employeeID string) ([]Lesson, error) {
	keyCond := expression.Key("employeeID").Equal(expression.Value(employeeID))
	filter := expression.Name("done").Equal(expression.Value(false))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}

	lessons := make([]Lesson, 0, len(result.Items))
	for _, item := range result.Items {
		lessons = append(lessons, *itemToLesson(item))
	}
	return lessons, nil
}

func (s *Store) key(employeeID, lessonID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"employeeID": &types.AttributeValueMemberS{Value: employeeID},
		"lessonID":   &types.AttributeValueMemberS{Value: lessonID},
	}
}

// itemToLesson converts a lesson item back into the typed model. Serialized
// fields that fail to parse are left zero rather than failing the read.
func itemToLesson(item map[string]types.AttributeValue) *Lesson {
	l := &Lesson{}

	if attr, ok := item["lessonID"].(*types.AttributeValueMemberS); ok {
		l.LessonID = attr.Value
	}
	if attr, ok := item["employeeID"].(*types.AttributeValueMemberS); ok {
		l.UserID = attr.Value
	}
	if attr, ok := item["topic"].(*types.AttributeValueMemberS); ok {
		l.Topic = attr.Value
	}
	if attr, ok := item["subTopics"].(*types.AttributeValueMemberS); ok {
		_ = json.Unmarshal([]byte(attr.Value), &l.SubTopics)
	}
	if attr, ok := item["theories"].(*types.AttributeValueMemberS); ok {
		_ = json.Unmarshal([]byte(attr.Value), &l.Theories)
	}
	if attr, ok := item["quiz"].(*types.AttributeValueMemberS); ok {
		_ = json.Unmarshal([]byte(attr.Value), &l.Quiz)
	}
	if attr, ok := item["durationMinutes"].(*types.AttributeValueMemberN); ok {
		l.DurationMinutes, _ = strconv.Atoi(attr.Value)
	}
	if attr, ok := item["level"].(*types.AttributeValueMemberS); ok {
		l.Level = attr.Value
	}
	if attr, ok := item["feedback"].(*types.AttributeValueMemberS); ok {
		l.Feedback = attr.Value
	}
	if attr, ok := item["createdAt"].(*types.AttributeValueMemberS); ok {
		l.CreatedAt = attr.Value
	}
	if attr, ok := item["done"].(*types.AttributeValueMemberBOOL); ok {
		l.Done = attr.Value
	}
	if attr, ok := item["finishedAt"].(*types.AttributeValueMemberS); ok {
		l.FinishedAt = attr.Value
	}

	return l
}

package lesson

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MockDynamoDB implements DynamoDBAPI for testing
type MockDynamoDB struct {
	GetItemOutput *dynamodb.GetItemOutput
	GetItemErr    error

	PutItemInput *dynamodb.PutItemInput
	PutItemErr   error

	UpdateItemInput *dynamodb.UpdateItemInput
	UpdateItemErr   error

	QueryInput  *dynamodb.QueryInput
	QueryOutput *dynamodb.QueryOutput
	QueryErr    error
}

func (m *MockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.GetItemErr != nil {
		return nil, m.GetItemErr
	}
	return m.GetItemOutput, nil
}

func (m *MockDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.PutItemInput = params
	if m.PutItemErr != nil {
		return nil, m.PutItemErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *MockDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.UpdateItemInput = params
	if m.UpdateItemErr != nil {
		return nil, m.UpdateItemErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *MockDynamoDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.QueryInput = params
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.QueryOutput, nil
}

func sampleLesson() *Lesson {
	return &Lesson{
		LessonID:  "LESSON#1",
		UserID:    "E1",
		Topic:     "Excel",
		SubTopics: []string{"Formulas"},
		Theories:  []Theory{{Title: "Cells", Content: "Cells hold values."}},
		Quiz: &Quiz{
			MaxAttempts: 3,
			Questions: []Question{{
				Question:      "What is a cell?",
				Options:       []string{"A box", "A sheet", "A file"},
				CorrectAnswer: 0,
				Difficulty:    "Easy",
			}},
		},
		DurationMinutes: 5,
		Level:           "Beginner",
		CreatedAt:       "2026-08-29T00:00:00Z",
	}
}

func TestPut_SerializesNestedStructures(t *testing.T) {
	mock := &MockDynamoDB{}
	store := NewStore(mock, "lesson")

	if err := store.Put(context.Background(), "E1", sampleLesson()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := mock.PutItemInput.Item
	if item["employeeID"].(*types.AttributeValueMemberS).Value != "E1" {
		t.Error("expected employeeID partition key")
	}
	if item["lessonID"].(*types.AttributeValueMemberS).Value != "LESSON#1" {
		t.Error("expected lessonID sort key")
	}

	quiz := item["quiz"].(*types.AttributeValueMemberS).Value
	if !strings.Contains(quiz, `"correctAnswer":0`) {
		t.Errorf("expected quiz serialized as JSON, got %q", quiz)
	}
	if item["done"].(*types.AttributeValueMemberBOOL).Value {
		t.Error("expected new lesson to be not done")
	}
	if item["durationMinutes"].(*types.AttributeValueMemberN).Value != "5" {
		t.Error("expected numeric duration")
	}
}

func TestGet_RoundTrip(t *testing.T) {
	put := &MockDynamoDB{}
	store := NewStore(put, "lesson")
	if err := store.Put(context.Background(), "E1", sampleLesson()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	get := &MockDynamoDB{GetItemOutput: &dynamodb.GetItemOutput{Item: put.PutItemInput.Item}}
	store = NewStore(get, "lesson")

	l, err := store.Get(context.Background(), "E1", "LESSON#1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected lesson, got nil")
	}
	if l.Topic != "Excel" {
		t.Errorf("unexpected topic %q", l.Topic)
	}
	if l.Quiz == nil || len(l.Quiz.Questions) != 1 || l.Quiz.Questions[0].Question != "What is a cell?" {
		t.Errorf("quiz did not round-trip: %+v", l.Quiz)
	}
	if len(l.Theories) != 1 || l.Theories[0].Title != "Cells" {
		t.Errorf("theories did not round-trip: %+v", l.Theories)
	}
}

func TestGet_NotFound(t *testing.T) {
	mock := &MockDynamoDB{GetItemOutput: &dynamodb.GetItemOutput{}}
	store := NewStore(mock, "lesson")

	l, err := store.Get(context.Background(), "E1", "LESSON#missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != nil {
		t.Errorf("expected nil lesson, got %+v", l)
	}
}

func TestMarkDone(t *testing.T) {
	mock := &MockDynamoDB{}
	store := NewStore(mock, "lesson")

	if err := store.MarkDone(context.Background(), "E1", "LESSON#1", "2026-08-29T10:00:00Z"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.UpdateItemInput
	if input.Key["lessonID"].(*types.AttributeValueMemberS).Value != "LESSON#1" {
		t.Error("expected lessonID in key")
	}

	foundDone := false
	foundFinished := false
	for _, av := range input.ExpressionAttributeValues {
		if b, ok := av.(*types.AttributeValueMemberBOOL); ok && b.Value {
			foundDone = true
		}
		if s, ok := av.(*types.AttributeValueMemberS); ok && s.Value == "2026-08-29T10:00:00Z" {
			foundFinished = true
		}
	}
	if !foundDone || !foundFinished {
		t.Error("expected done=true and finishedAt in update values")
	}
}

func TestListPending(t *testing.T) {
	put := &MockDynamoDB{}
	store := NewStore(put, "lesson")
	if err := store.Put(context.Background(), "E1", sampleLesson()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock := &MockDynamoDB{
		QueryOutput: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{put.PutItemInput.Item}},
	}
	store = NewStore(mock, "lesson")

	lessons, err := store.ListPending(context.Background(), "E1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 1 {
		t.Fatalf("expected 1 lesson, got %d", len(lessons))
	}
	if lessons[0].Topic != "Excel" {
		t.Errorf("unexpected topic %q", lessons[0].Topic)
	}

	// Key condition selects the employee; the filter excludes done lessons.
	if mock.QueryInput.KeyConditionExpression == nil {
		t.Fatal("expected a key condition expression")
	}
	if mock.QueryInput.FilterExpression == nil {
		t.Fatal("expected a filter expression on done")
	}
}

func TestListPending_QueryError(t *testing.T) {
	mock := &MockDynamoDB{QueryErr: errors.New("throttled")}
	store := NewStore(mock, "lesson")

	if _, err := store.ListPending(context.Background(), "E1"); err == nil {
		t.Error("expected query error to surface")
	}
}

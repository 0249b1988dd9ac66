// Package employee reads and updates employee records in DynamoDB. Records
// are created and populated elsewhere; this package only reads them and
// applies the additive progress update.
package employee

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Progress is the nested bookkeeping substructure on an employee record.
type Progress struct {
	CompletedLessons int    `dynamodbav:"completedLessons" json:"completedLessons"`
	LastLessonDate   string `dynamodbav:"lastLessonDate" json:"lastLessonDate"`
}

// Record is an employee record. EmployeeID uniquely selects at most one
// record.
type Record struct {
	EmployeeID  string   `dynamodbav:"employeeID" json:"employeeID"`
	Email       string   `dynamodbav:"email" json:"email"`
	SkillGaps   []string `dynamodbav:"skillGaps" json:"skillGaps"`
	SummaryText string   `dynamodbav:"summaryText" json:"summaryText"`
	Progress    Progress `dynamodbav:"progress" json:"progress"`
}

// DynamoDBAPI is the DynamoDB surface this package needs.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Store accesses the employee table.
type Store struct {
	client    DynamoDBAPI
	tableName string
}

// NewStore creates a Store for the given employee table.
func NewStore(client DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get fetches an employee record by identifier. Returns nil without error
// when no record exists.
func (s *Store) Get(ctx context.Context, employeeID string) (*Record, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"employeeID": &types.AttributeValueMemberS{Value: employeeID},
		},
	})
	if err != nil {
		return nil, err
	}

	if result.Item == nil {
		return nil, nil
	}

	var record Record
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal employee record: %w", err)
	}
	record.EmployeeID = employeeID

	return &record, nil
}

// IncrementProgress bumps the completed-lessons counter and sets the
// last-lesson date in one conditional update, initialising the progress
// substructure when absent. Each update is atomic; a lost race between the
// two condition branches falls back to the other branch, so concurrent
// invocations never drop an increment.
func (s *Store) IncrementProgress(ctx context.Context, employeeID, date string) error {
	err := s.incrementExisting(ctx, employeeID, date)
	if !isConditionFailed(err) {
		return err
	}

	// No progress substructure yet; seed it with this first lesson.
	err = s.initializeProgress(ctx, employeeID, date)
	if !isConditionFailed(err) {
		return err
	}

	// Another invocation initialised it first; the increment applies now.
	return s.incrementExisting(ctx, employeeID, date)
}

func (s *Store) incrementExisting(ctx context.Context, employeeID, date string) error {
	update := expression.Set(
		expression.Name("progress.completedLessons"),
		expression.Plus(
			expression.IfNotExists(expression.Name("progress.completedLessons"), expression.Value(0)),
			expression.Value(1),
		),
	).Set(
		expression.Name("progress.lastLessonDate"),
		expression.Value(date),
	)
	cond := expression.AttributeExists(expression.Name("progress"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(employeeID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

func (s *Store) initializeProgress(ctx context.Context, employeeID, date string) error {
	update := expression.Set(
		expression.Name("progress"),
		expression.Value(Progress{CompletedLessons: 1, LastLessonDate: date}),
	)
	cond := expression.AttributeNotExists(expression.Name("progress"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(employeeID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

func (s *Store) key(employeeID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"employeeID": &types.AttributeValueMemberS{Value: employeeID},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

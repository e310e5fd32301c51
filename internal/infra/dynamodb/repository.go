// Package dynamodb stores expense rows in a DynamoDB table keyed by fingerprint.
//
// Table layout: partition key "fingerprint" (S); global secondary index
// (default "user_id-date-index") with partition key "user_id" (S), sort key
// "date" (S, YYYY-MM-DD) and ALL projection.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

// API is the subset of the DynamoDB client used by Repository.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// expenseItem is the stored item shape.
type expenseItem struct {
	Fingerprint string `dynamodbav:"fingerprint"`
	UserID      string `dynamodbav:"user_id"`
	Date        string `dynamodbav:"date"`
	Amount      int64  `dynamodbav:"amount"`
	Category    string `dynamodbav:"category"`
	Mode        string `dynamodbav:"mode"`
	Note        string `dynamodbav:"note"`
	Source      string `dynamodbav:"source"`
	CreatedAt   string `dynamodbav:"created_at"`
}

func newExpenseItem(rec *expense.Record, now time.Time) expenseItem {
	return expenseItem{
		Fingerprint: rec.Fingerprint,
		UserID:      rec.UserID,
		Date:        rec.Date.String(),
		Amount:      rec.Amount,
		Category:    string(rec.Category),
		Mode:        string(rec.Mode),
		Note:        rec.Note,
		Source:      rec.Source,
		CreatedAt:   now.UTC().Format(time.RFC3339),
	}
}

func (i expenseItem) record() (expense.Record, error) {
	date, err := civil.ParseDate(i.Date)
	if err != nil {
		return expense.Record{}, fmt.Errorf("item %s has invalid date %q: %w", i.Fingerprint, i.Date, err)
	}
	return expense.Record{
		UserID:      i.UserID,
		Date:        date,
		Amount:      i.Amount,
		Category:    expense.Category(i.Category),
		Mode:        expense.Mode(i.Mode),
		Note:        i.Note,
		Source:      i.Source,
		Fingerprint: i.Fingerprint,
	}, nil
}

// Repository implements store.Repository using DynamoDB.
type Repository struct {
	client    API
	tableName string
	indexName string
	timeout   time.Duration
	now       func() time.Time
}

// NewRepository loads the default AWS configuration for region and creates a repository.
func NewRepository(ctx context.Context, region, tableName, indexName string, timeout time.Duration) (*Repository, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("NewRepository: loading AWS config: %w", err)
	}
	return NewRepositoryWithClient(dynamodb.NewFromConfig(cfg), tableName, indexName, timeout), nil
}

// NewRepositoryWithClient creates a repository around an existing client.
func NewRepositoryWithClient(client API, tableName, indexName string, timeout time.Duration) *Repository {
	return &Repository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Close implements store.Repository. The SDK client holds no resources to release.
func (r *Repository) Close() error {
	return nil
}

// UpsertExpense writes rec unless an item with the same fingerprint exists.
func (r *Repository) UpsertExpense(ctx context.Context, rec *expense.Record) (store.WriteResult, error) {
	item, err := attributevalue.MarshalMap(newExpenseItem(rec, r.now()))
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: marshalling item: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(fingerprint)"),
	})
	if err == nil {
		return store.Created(), nil
	}

	var conditionFailed *dynamodbtypes.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return store.Duplicate(), nil
	}

	// DynamoDB answered but refused the write.
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return store.WriteResult{Status: respErr.HTTPStatusCode(), Body: respErr.Error()}, nil
	}

	return store.WriteResult{}, fmt.Errorf("UpsertExpense: putting item: %w", err)
}

// ListAmounts implements store.Reader.
func (r *Repository) ListAmounts(ctx context.Context, userID string, date civil.Date) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	items, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("user_id = :uid AND #date = :date"),
		ExpressionAttributeNames: map[string]string{
			"#date": "date",
		},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":uid":  &dynamodbtypes.AttributeValueMemberS{Value: userID},
			":date": &dynamodbtypes.AttributeValueMemberS{Value: date.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ListAmounts: %w", err)
	}

	amounts := make([]int64, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, item.Amount)
	}
	return amounts, nil
}

// FetchRange implements store.Reader.
func (r *Repository) FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
	items, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("user_id = :uid AND #date BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#date": "date",
		},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":uid":   &dynamodbtypes.AttributeValueMemberS{Value: userID},
			":start": &dynamodbtypes.AttributeValueMemberS{Value: start.String()},
			":end":   &dynamodbtypes.AttributeValueMemberS{Value: end.String()},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("FetchRange: %w", err)
	}

	records := make([]expense.Record, 0, len(items))
	for _, item := range items {
		rec, err := item.record()
		if err != nil {
			return nil, fmt.Errorf("FetchRange: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// query follows LastEvaluatedKey until every page has been read.
func (r *Repository) query(ctx context.Context, input *dynamodb.QueryInput) ([]expenseItem, error) {
	var items []expenseItem
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue

	for {
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("querying index %s: %w", r.indexName, err)
		}

		var page []expenseItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshalling items: %w", err)
		}
		items = append(items, page...)

		lastEvaluatedKey = result.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			break
		}
	}

	return items, nil
}

// Ensure Repository implements the Repository interface.
var _ store.Repository = (*Repository)(nil)

package idempotency

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

const createCondition = "attribute_not_exists(idempotency_key)"

// Store encapsulates idempotency operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // default TTL window when creating entries
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: how long records are kept before the table TTL reaps them (e.g., 48*time.Hour)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func (s *Store) newRecord(key, orderID string) Record {
	now := s.nowFunc().UTC()
	return Record{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}
}

// CreateIfNotExists creates an IN_PROGRESS record if the key does not exist.
// Returns (created=true, nil) if successfully created.
// Returns (created=false, nil) if the record already exists (caller should Get to inspect).
func (s *Store) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	err := aws.PutItem(ctx, s.client, s.tableName, s.newRecord(key, orderID), createCondition)
	if err != nil {
		if aws.IsConditionFailed(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// TransactPut returns a conditional put of a fresh IN_PROGRESS record, for callers that
// create the record atomically with their own writes. The transaction is canceled when
// the key already exists.
func (s *Store) TransactPut(key, orderID string) (types.TransactWriteItem, error) {
	return aws.MarshalPut(s.tableName, s.newRecord(key, orderID), createCondition)
}

// Get retrieves a record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	found, err := aws.GetItem(ctx, s.client, s.tableName, aws.StringKey("idempotency_key", key), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// MarkDone sets status to DONE and stores a small response body & status.
func (s *Store) MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error {
	return s.update(ctx, key, "SET #s = :st, response_body = :rb, response_status = :rs, updated_at = :ua",
		map[string]types.AttributeValue{
			":st": aws.S(StatusDone),
			":rb": aws.S(responseBody),
			":rs": aws.N(strconv.Itoa(responseStatus)),
		})
}

// MarkFailed marks the record FAILED and stores a note.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	return s.update(ctx, key, "SET #s = :st, note = :n, updated_at = :ua",
		map[string]types.AttributeValue{
			":st": aws.S(StatusFailed),
			":n":  aws.S(note),
		})
}

func (s *Store) update(ctx context.Context, key, expr string, values map[string]types.AttributeValue) error {
	values[":ua"] = aws.S(s.nowFunc().UTC().Format(time.RFC3339Nano))
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 sdkaws.String(s.tableName),
		Key:                       aws.StringKey("idempotency_key", key),
		UpdateExpression:          sdkaws.String(expr),
		ConditionExpression:       sdkaws.String("attribute_exists(idempotency_key)"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("update idempotency record %s: %w", key, err)
	}
	return nil
}

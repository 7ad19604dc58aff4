package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// StringKey builds a single-attribute string primary key.
func StringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// S wraps a string attribute value.
func S(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

// N wraps a numeric attribute value given in its decimal string form.
func N(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

// GetItem loads the item at key into out. It reports false when the item does not exist.
func GetItem(ctx context.Context, client DynamoDBAPI, table string, key map[string]types.AttributeValue, out interface{}) (bool, error) {
	res, err := client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      sdkaws.String(table),
		Key:            key,
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get item: %w", err)
	}
	if len(res.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal item: %w", err)
	}
	return true, nil
}

// PutItem marshals item and writes it, optionally guarded by condition.
func PutItem(ctx context.Context, client DynamoDBAPI, table string, item interface{}, condition string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	input := &dyn.PutItemInput{
		TableName: sdkaws.String(table),
		Item:      av,
	}
	if condition != "" {
		input.ConditionExpression = sdkaws.String(condition)
	}
	if _, err := client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// MarshalPut builds a transactional put of item, optionally guarded by condition.
func MarshalPut(table string, item interface{}, condition string) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal item: %w", err)
	}
	put := &types.Put{
		TableName: sdkaws.String(table),
		Item:      av,
	}
	if condition != "" {
		put.ConditionExpression = sdkaws.String(condition)
	}
	return types.TransactWriteItem{Put: put}, nil
}

// DeleteExisting deletes the item at key. It returns a wrapped
// ConditionalCheckFailedException when no item exists (see IsConditionFailed).
func DeleteExisting(ctx context.Context, client DynamoDBAPI, table, keyName, keyValue string) error {
	_, err := client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:                sdkaws.String(table),
		Key:                      StringKey(keyName, keyValue),
		ConditionExpression:      sdkaws.String("attribute_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": keyName},
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// QueryEqual returns every item of index whose attr equals value, following pagination.
// index may be empty to query the base table.
func QueryEqual(ctx context.Context, client DynamoDBAPI, table, index, attr string, value types.AttributeValue, out interface{}) error {
	input := &dyn.QueryInput{
		TableName:                 sdkaws.String(table),
		KeyConditionExpression:    sdkaws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": value},
	}
	if index != "" {
		input.IndexName = sdkaws.String(index)
	}

	var items []map[string]types.AttributeValue
	for {
		res, err := client.Query(ctx, input)
		if err != nil {
			return fmt.Errorf("query %s: %w", attr, err)
		}
		items = append(items, res.Items...)
		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = res.LastEvaluatedKey
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal items: %w", err)
	}
	return nil
}

// ScanAll reads the whole table into out, following pagination.
func ScanAll(ctx context.Context, client DynamoDBAPI, table string, out interface{}) error {
	input := &dyn.ScanInput{TableName: sdkaws.String(table)}

	var items []map[string]types.AttributeValue
	for {
		res, err := client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		items = append(items, res.Items...)
		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = res.LastEvaluatedKey
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal items: %w", err)
	}
	return nil
}

// IsConditionFailed reports whether err is a failed ConditionExpression.
func IsConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

// CanceledReasons returns the per-item cancellation codes of a canceled transaction,
// or nil when err is not a TransactionCanceledException.
func CanceledReasons(err error) []string {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil
	}
	codes := make([]string, len(tce.CancellationReasons))
	for i, r := range tce.CancellationReasons {
		codes[i] = sdkaws.ToString(r.Code)
	}
	return codes
}

// FirstFailed returns the index of the first ConditionalCheckFailed reason, or -1.
func FirstFailed(reasons []string) int {
	for i, code := range reasons {
		if code == "ConditionalCheckFailed" {
			return i
		}
	}
	return -1
}

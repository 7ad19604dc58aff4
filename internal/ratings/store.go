package ratings

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

// ErrOutOfRange is returned for ratings outside MinRating..MaxRating.
var ErrOutOfRange = errors.New("rating must be between 1 and 5")

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is the running (total, count) pair for one product.
type Rating struct {
	ProductID string `dynamodbav:"product_id" json:"product_id"`
	Total     int64  `dynamodbav:"total" json:"total"`
	Count     int64  `dynamodbav:"count" json:"count"`
}

// Average is Total/Count rounded to two places, 0 when nothing was rated.
func (r Rating) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	avg, _ := decimal.NewFromInt(r.Total).Div(decimal.NewFromInt(r.Count)).Round(2).Float64()
	return avg
}

// Summary is a rating as served to clients.
type Summary struct {
	Rating
	Average float64 `json:"average"`
}

func (r Rating) Summary() Summary {
	return Summary{Rating: r, Average: r.Average()}
}

// Store encapsulates operations on the ratings table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Submit adds value to the product's running total in a single atomic update.
func (s *Store) Submit(ctx context.Context, productID string, value int) (*Rating, error) {
	if value < MinRating || value > MaxRating {
		return nil, ErrOutOfRange
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                sdkaws.String(s.tableName),
		Key:                      aws.StringKey("product_id", productID),
		UpdateExpression:         sdkaws.String("ADD #t :r, #c :one"),
		ExpressionAttributeNames: map[string]string{"#t": "total", "#c": "count"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r":   aws.N(fmt.Sprint(value)),
			":one": aws.N("1"),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("submit rating: %w", err)
	}
	var r Rating
	if err := attributevalue.UnmarshalMap(out.Attributes, &r); err != nil {
		return nil, fmt.Errorf("unmarshal rating: %w", err)
	}
	return &r, nil
}

// Get returns the product's rating; unrated products have zero total and count.
func (s *Store) Get(ctx context.Context, productID string) (*Rating, error) {
	r := Rating{ProductID: productID}
	if _, err := aws.GetItem(ctx, s.client, s.tableName, aws.StringKey("product_id", productID), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

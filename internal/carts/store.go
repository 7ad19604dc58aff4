package carts

import (
	"context"
	"errors"
	"time"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

var ErrNotFound = errors.New("cart not found")

// Store encapsulates operations on the carts table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	var c Cart
	found, err := aws.GetItem(ctx, s.client, s.tableName, aws.StringKey("user_id", userID), &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &c, nil
}

// GetOrNew returns the user's cart or an empty one when none exists yet.
func (s *Store) GetOrNew(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Cart{UserID: userID, Items: []LineItem{}}, nil
	}
	return c, err
}

// Put overwrites the whole cart document and stamps UpdatedAt.
func (s *Store) Put(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.nowFunc().UTC()
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	return aws.PutItem(ctx, s.client, s.tableName, c, "")
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := aws.DeleteExisting(ctx, s.client, s.tableName, "user_id", userID); err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

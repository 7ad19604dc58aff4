package addresses

import (
	"context"
	"errors"
	"fmt"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

var ErrNotFound = errors.New("address not found")

// UserIndex is the GSI on addresses(user_id).
const UserIndex = "user_id-index"

// Address is a delivery address owned by one user.
type Address struct {
	ID          string `dynamodbav:"id" json:"id"`
	UserID      string `dynamodbav:"user_id" json:"user_id"`
	Road        string `dynamodbav:"road" json:"road"`
	BuildingNo  string `dynamodbav:"building_no" json:"building_no"`
	FloorNum    string `dynamodbav:"floor_num,omitempty" json:"floor_num,omitempty"`
	ApartmentNo string `dynamodbav:"apartment_no,omitempty" json:"apartment_no,omitempty"`
}

// Store encapsulates operations on the addresses table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

func (s *Store) Create(ctx context.Context, a *Address) error {
	if err := aws.PutItem(ctx, s.client, s.tableName, a, "attribute_not_exists(id)"); err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Address, error) {
	var a Address
	found, err := aws.GetItem(ctx, s.client, s.tableName, aws.StringKey("id", id), &a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Address, error) {
	out := []Address{}
	if err := aws.QueryEqual(ctx, s.client, s.tableName, UserIndex, "user_id", aws.S(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace overwrites an existing address.
func (s *Store) Replace(ctx context.Context, a *Address) error {
	if err := aws.PutItem(ctx, s.client, s.tableName, a, "attribute_exists(id)"); err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := aws.DeleteExisting(ctx, s.client, s.tableName, "id", id); err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

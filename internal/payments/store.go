package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

var ErrNotFound = errors.New("payment method not found")

// UserIndex is the GSI on payments(user_id).
const UserIndex = "user_id-index"

// Method is a saved payment method. The credential is stored as given and masked
// whenever it leaves the service.
type Method struct {
	PaymentID         string `dynamodbav:"payment_id" json:"payment_id"`
	UserID            string `dynamodbav:"user_id" json:"user_id"`
	PaymentMethod     string `dynamodbav:"payment_method" json:"payment_method"`
	PaymentCredential string `dynamodbav:"payment_credential" json:"payment_credential"`
}

// Masked returns a copy of m with all but the last four credential characters hidden.
func (m Method) Masked() Method {
	m.PaymentCredential = Mask(m.PaymentCredential)
	return m
}

func Mask(credential string) string {
	r := []rune(credential)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// Store encapsulates operations on the payments table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

func (s *Store) Create(ctx context.Context, m *Method) error {
	if err := aws.PutItem(ctx, s.client, s.tableName, m, "attribute_not_exists(payment_id)"); err != nil {
		return fmt.Errorf("create payment method: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Method, error) {
	var m Method
	found, err := aws.GetItem(ctx, s.client, s.tableName, aws.StringKey("payment_id", id), &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Method, error) {
	out := []Method{}
	if err := aws.QueryEqual(ctx, s.client, s.tableName, UserIndex, "user_id", aws.S(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace overwrites an existing payment method.
func (s *Store) Replace(ctx context.Context, m *Method) error {
	if err := aws.PutItem(ctx, s.client, s.tableName, m, "attribute_exists(payment_id)"); err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := aws.DeleteExisting(ctx, s.client, s.tableName, "payment_id", id); err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

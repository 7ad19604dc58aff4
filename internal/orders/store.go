package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/carts"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCartChanged       = errors.New("cart changed during checkout")
	ErrDuplicateRequest  = errors.New("idempotency key already used")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStatusMismatch is returned when a conditional transition finds the order in
	// another status.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
)

// Tables are the tables an order transaction touches.
type Tables struct {
	Orders   string
	Carts    string
	Products string
}

// Store encapsulates operations on the orders table.
type Store struct {
	client  aws.DynamoDBAPI
	tables  Tables
	nowFunc func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tables Tables) *Store {
	return &Store{
		client:  client,
		tables:  tables,
		nowFunc: time.Now,
	}
}

// Checkout atomically:
//   - creates order (status Pending, items and total snapshotted from cart)
//   - deletes cart, provided it was not modified since it was read
//   - creates the idempotency record when idem is non-nil
//
// order.OrderID, UserID, AddressID, PaymentID and Tip must be set by the caller.
func (s *Store) Checkout(ctx context.Context, order *Order, cart *carts.Cart, idem *types.TransactWriteItem) error {
	if len(cart.Items) == 0 {
		return ErrEmptyCart
	}

	now := s.nowFunc().UTC()
	order.Items, order.Total = Snapshot(cart)
	order.Status = StatusPending
	order.CreatedAt, order.UpdatedAt = now, now

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	cartStamp, err := attributevalue.Marshal(cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("marshal cart timestamp: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           sdkaws.String(s.tables.Orders),
				Item:                orderMap,
				ConditionExpression: sdkaws.String("attribute_not_exists(order_id)"),
			},
		},
		{
			Delete: &types.Delete{
				TableName:                 sdkaws.String(s.tables.Carts),
				Key:                       aws.StringKey("user_id", cart.UserID),
				ConditionExpression:       sdkaws.String("updated_at = :ua"),
				ExpressionAttributeValues: map[string]types.AttributeValue{":ua": cartStamp},
			},
		},
	}
	if idem != nil {
		transactItems = append(transactItems, *idem)
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: transactItems})
	if err != nil {
		switch aws.FirstFailed(aws.CanceledReasons(err)) {
		case 0:
			return fmt.Errorf("order %s already exists: %w", order.OrderID, err)
		case 1:
			return ErrCartChanged
		case 2:
			return ErrDuplicateRequest
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	found, err := aws.GetItem(ctx, s.client, s.tables.Orders, aws.StringKey("order_id", orderID), &o)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &o, nil
}

// List returns every order, newest first.
func (s *Store) List(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := aws.ScanAll(ctx, s.client, s.tables.Orders, &out); err != nil {
		return nil, err
	}
	return newestFirst(out), nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.listBy(ctx, UserIndex, "user_id", userID)
}

func (s *Store) ListByStatus(ctx context.Context, status string) ([]Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.listBy(ctx, StatusIndex, "status", status)
}

func (s *Store) ListByDeliveryMan(ctx context.Context, deliveryManID string) ([]Order, error) {
	return s.listBy(ctx, DeliveryManIndex, "delivery_man_id", deliveryManID)
}

func (s *Store) listBy(ctx context.Context, index, attr, value string) ([]Order, error) {
	var out []Order
	if err := aws.QueryEqual(ctx, s.client, s.tables.Orders, index, attr, aws.S(value), &out); err != nil {
		return nil, err
	}
	return newestFirst(out), nil
}

// UpdateStatus moves an order to status. Accepted goes through Accept; every other
// allowed status is written unconditionally.
func (s *Store) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if status == StatusAccepted {
		return s.Accept(ctx, orderID)
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                sdkaws.String(s.tables.Orders),
		Key:                      aws.StringKey("order_id", orderID),
		UpdateExpression:         sdkaws.String("SET #s = :new, updated_at = :ua"),
		ConditionExpression:      sdkaws.String("attribute_exists(order_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new": aws.S(status),
			":ua":  aws.S(s.nowFunc().UTC().Format(time.RFC3339Nano)),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// Accept moves a Pending order to Accepted and decrements stock for every product in
// one transaction. Returns ErrStatusMismatch when the order is no longer Pending and
// ErrInsufficientStock when any product lacks stock; nothing is written in either case.
func (s *Store) Accept(ctx context.Context, orderID string) (*Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	transactItems := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName:                sdkaws.String(s.tables.Orders),
			Key:                      aws.StringKey("order_id", orderID),
			UpdateExpression:         sdkaws.String("SET #s = :new, updated_at = :ua"),
			ConditionExpression:      sdkaws.String("#s = :expected"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":new":      aws.S(StatusAccepted),
				":expected": aws.S(StatusPending),
				":ua":       aws.S(now),
			},
		},
	}}

	productIDs, qty := order.quantities()
	for _, id := range productIDs {
		transactItems = append(transactItems, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                sdkaws.String(s.tables.Products),
				Key:                      aws.StringKey("id", id),
				UpdateExpression:         sdkaws.String("ADD #q :neg SET updated_at = :ua"),
				ConditionExpression:      sdkaws.String("attribute_exists(#id) AND #q >= :want"),
				ExpressionAttributeNames: map[string]string{"#q": "quantity", "#id": "id"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":neg":  aws.N(strconv.Itoa(-qty[id])),
					":want": aws.N(strconv.Itoa(qty[id])),
					":ua":   aws.S(now),
				},
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: transactItems})
	if err != nil {
		switch idx := aws.FirstFailed(aws.CanceledReasons(err)); {
		case idx == 0:
			return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrStatusMismatch)
		case idx > 0:
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, productIDs[idx-1])
		}
		return nil, fmt.Errorf("transact write: %w", err)
	}

	order.Status = StatusAccepted
	order.UpdatedAt, _ = time.Parse(time.RFC3339Nano, now)
	return order, nil
}

func newestFirst(orders []Order) []Order {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

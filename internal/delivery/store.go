package delivery

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/orders"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/users"
)

var (
	ErrNotFound        = errors.New("confirmation not found")
	ErrAlreadyIssued   = errors.New("confirmation already issued for order")
	ErrOrderNotReady   = errors.New("order is not accepted")
	ErrNotAssigned     = errors.New("order is assigned to another deliveryman")
	ErrCodeMismatch    = errors.New("confirmation code does not match")
	ErrTooManyAttempts = errors.New("too many confirmation attempts")
	ErrCourierBusy     = errors.New("deliveryman already holds an active delivery")
)

// Confirmation is the pending handshake between a courier and a customer. It exists
// from courier acceptance until delivery is confirmed or cancelled.
type Confirmation struct {
	OrderID       string    `dynamodbav:"order_id" json:"order_id"`
	DeliveryManID string    `dynamodbav:"delivery_man_id" json:"deliveryManId"`
	CustomerID    string    `dynamodbav:"customer_id" json:"customerId"`
	Code          string    `dynamodbav:"confirmation_code" json:"confirmation_code"`
	Attempts      int       `dynamodbav:"attempts" json:"attempts"`
	CreatedAt     time.Time `dynamodbav:"created_at" json:"createdAt"`
}

// Tables are the tables the handshake transactions touch.
type Tables struct {
	Confirmations string
	Orders        string
	Users         string
}

// Store runs the delivery handshake. Every state change spans the confirmation, the
// order and the courier and is written in one transaction.
type Store struct {
	client      aws.DynamoDBAPI
	tables      Tables
	maxAttempts int
	nowFunc     func() time.Time
	codeFunc    func() (string, error)
}

func NewStore(client aws.DynamoDBAPI, tables Tables, maxAttempts int) *Store {
	return &Store{
		client:      client,
		tables:      tables,
		maxAttempts: maxAttempts,
		nowFunc:     time.Now,
		codeFunc:    GenerateCode,
	}
}

// Issue assigns an Accepted order to deliveryManID, creates its confirmation code and
// marks the courier busy. A courier holds one active delivery at a time.
func (s *Store) Issue(ctx context.Context, orderID, deliveryManID string) (*Confirmation, error) {
	var order orders.Order
	found, err := aws.GetItem(ctx, s.client, s.tables.Orders, aws.StringKey("order_id", orderID), &order)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, orders.ErrNotFound
	}
	if order.Status != orders.StatusAccepted {
		return nil, ErrOrderNotReady
	}

	code, err := s.codeFunc()
	if err != nil {
		return nil, err
	}
	now := s.nowFunc().UTC()
	conf := &Confirmation{
		OrderID:       orderID,
		DeliveryManID: deliveryManID,
		CustomerID:    order.UserID,
		Code:          code,
		CreatedAt:     now,
	}
	put, err := aws.MarshalPut(s.tables.Confirmations, conf, "attribute_not_exists(order_id)")
	if err != nil {
		return nil, err
	}
	stamp := aws.S(now.Format(time.RFC3339Nano))

	items := []types.TransactWriteItem{
		put,
		{Update: &types.Update{
			TableName:                sdkaws.String(s.tables.Orders),
			Key:                      aws.StringKey("order_id", orderID),
			UpdateExpression:         sdkaws.String("SET delivery_man_id = :d, updated_at = :ua"),
			ConditionExpression:      sdkaws.String("#s = :accepted"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":d":        aws.S(deliveryManID),
				":ua":       stamp,
				":accepted": aws.S(orders.StatusAccepted),
			},
		}},
		s.courierStatus(deliveryManID, users.StatusBusy, stamp, users.StatusFree),
	}

	if err := s.transact(ctx, items); err != nil {
		switch aws.FirstFailed(aws.CanceledReasons(err)) {
		case 0:
			return nil, ErrAlreadyIssued
		case 1:
			return nil, ErrOrderNotReady
		case 2:
			return nil, s.courierError(ctx, deliveryManID)
		}
		return nil, err
	}
	return conf, nil
}

// courierError tells a missing courier apart from a busy one after a failed Issue.
func (s *Store) courierError(ctx context.Context, deliveryManID string) error {
	var u users.User
	found, err := aws.GetItem(ctx, s.client, s.tables.Users, aws.StringKey("id", deliveryManID), &u)
	if err != nil {
		return err
	}
	if !found {
		return users.ErrNotFound
	}
	return ErrCourierBusy
}

// Get fetches the confirmation of orderID.
func (s *Store) Get(ctx context.Context, orderID string) (*Confirmation, error) {
	var c Confirmation
	found, err := aws.GetItem(ctx, s.client, s.tables.Confirmations, aws.StringKey("order_id", orderID), &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Verify checks code against the stored one. Every call consumes an attempt before the
// comparison, so concurrent guesses cannot exceed the limit. On a match the confirmation
// is removed, the order becomes Delivered and the courier free.
func (s *Store) Verify(ctx context.Context, orderID, deliveryManID, code string) (*Confirmation, error) {
	conf, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if conf.DeliveryManID != deliveryManID {
		return nil, ErrNotAssigned
	}
	if err := s.countAttempt(ctx, orderID); err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(conf.Code)) != 1 {
		return nil, ErrCodeMismatch
	}

	stamp := aws.S(s.nowFunc().UTC().Format(time.RFC3339Nano))
	items := []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName:                 sdkaws.String(s.tables.Confirmations),
			Key:                       aws.StringKey("order_id", orderID),
			ConditionExpression:       sdkaws.String("confirmation_code = :c"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":c": aws.S(conf.Code)},
		}},
		{Update: &types.Update{
			TableName:                sdkaws.String(s.tables.Orders),
			Key:                      aws.StringKey("order_id", orderID),
			UpdateExpression:         sdkaws.String("SET #s = :delivered, updated_at = :ua"),
			ConditionExpression:      sdkaws.String("attribute_exists(order_id)"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":delivered": aws.S(orders.StatusDelivered),
				":ua":        stamp,
			},
		}},
		s.courierStatus(deliveryManID, users.StatusFree, stamp, ""),
	}
	if err := s.transact(ctx, items); err != nil {
		switch aws.FirstFailed(aws.CanceledReasons(err)) {
		case 0:
			return nil, ErrNotFound
		case 1:
			return nil, orders.ErrNotFound
		case 2:
			return nil, users.ErrNotFound
		}
		return nil, err
	}
	return conf, nil
}

// Cancel drops the confirmation, unassigns the order and frees the courier.
func (s *Store) Cancel(ctx context.Context, orderID string) (*Confirmation, error) {
	conf, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	stamp := aws.S(s.nowFunc().UTC().Format(time.RFC3339Nano))
	items := []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName:           sdkaws.String(s.tables.Confirmations),
			Key:                 aws.StringKey("order_id", orderID),
			ConditionExpression: sdkaws.String("attribute_exists(order_id)"),
		}},
		{Update: &types.Update{
			TableName:                 sdkaws.String(s.tables.Orders),
			Key:                       aws.StringKey("order_id", orderID),
			UpdateExpression:          sdkaws.String("SET updated_at = :ua REMOVE delivery_man_id"),
			ConditionExpression:       sdkaws.String("attribute_exists(order_id)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":ua": stamp},
		}},
		s.courierStatus(conf.DeliveryManID, users.StatusFree, stamp, ""),
	}
	if err := s.transact(ctx, items); err != nil {
		if aws.FirstFailed(aws.CanceledReasons(err)) == 0 {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return conf, nil
}

// countAttempt increments the attempt counter while it is below the limit.
func (s *Store) countAttempt(ctx context.Context, orderID string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           sdkaws.String(s.tables.Confirmations),
		Key:                 aws.StringKey("order_id", orderID),
		UpdateExpression:    sdkaws.String("ADD attempts :one"),
		ConditionExpression: sdkaws.String("attribute_exists(order_id) AND attempts < :max"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": aws.N("1"),
			":max": aws.N(strconv.Itoa(s.maxAttempts)),
		},
	})
	if err != nil {
		if !aws.IsConditionFailed(err) {
			return fmt.Errorf("count attempt: %w", err)
		}
		if _, getErr := s.Get(ctx, orderID); getErr != nil {
			return getErr
		}
		return ErrTooManyAttempts
	}
	return nil
}

// courierStatus sets the courier's status. A non-empty from makes the write
// conditional on the current status.
func (s *Store) courierStatus(userID, status string, stamp types.AttributeValue, from string) types.TransactWriteItem {
	update := &types.Update{
		TableName:                sdkaws.String(s.tables.Users),
		Key:                      aws.StringKey("id", userID),
		UpdateExpression:         sdkaws.String("SET #st = :st, updated_at = :ua"),
		ConditionExpression:      sdkaws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{"#st": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st": aws.S(status),
			":ua": stamp,
		},
	}
	if from != "" {
		update.ConditionExpression = sdkaws.String("attribute_exists(id) AND #st = :from")
		update.ExpressionAttributeValues[":from"] = aws.S(from)
	}
	return types.TransactWriteItem{Update: update}
}

func (s *Store) transact(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

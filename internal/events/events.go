// Package events carries order lifecycle notifications to SQS and to websocket clients.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

// Event types
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	DeliveryAssigned   = "delivery.assigned"
	DeliveryConfirmed  = "delivery.confirmed"
	DeliveryCancelled  = "delivery.cancelled"
)

// Event is the message body published for every order state change.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Total         float64   `json:"total,omitempty"`
	DeliveryManID string    `json:"delivery_man_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType, orderID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// SQS publishes events as JSON messages with an event_type attribute.
type SQS struct {
	sender *aws.Publisher
}

func NewSQS(sender *aws.Publisher) *SQS {
	return &SQS{sender: sender}
}

func (s *SQS) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.sender.Send(ctx, string(body), map[string]string{
		"event_type": e.Type,
		"order_id":   e.OrderID,
	})
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

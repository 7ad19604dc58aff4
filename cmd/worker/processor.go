package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/events"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/idempotency"
)

// Processor turns order events from SQS into CloudWatch metrics. SQS delivers at
// least once, so every message is recorded in the idempotency table and redeliveries
// of a completed message are skipped.
type Processor struct {
	idem    *idempotency.Store
	metrics *aws.Metrics
	logger  *zap.Logger
}

func NewProcessor(idem *idempotency.Store, metrics *aws.Metrics, logger *zap.Logger) *Processor {
	return &Processor{idem: idem, metrics: metrics, logger: logger}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) error {
	p.logger.Debug("received batch", zap.Int("records", len(ev.Records)))
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Lambda retries the batch; repeated failures go to the DLQ.
			p.logger.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	var e events.Event
	if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	log := p.logger.With(
		zap.String("message_id", rec.MessageId),
		zap.String("type", e.Type),
		zap.String("order_id", e.OrderID))

	key := dedupePrefix + rec.MessageId
	created, err := p.idem.CreateIfNotExists(ctx, key, e.OrderID)
	if err != nil {
		return fmt.Errorf("create idempotency record: %w", err)
	}
	if !created {
		existing, err := p.idem.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("get idempotency record: %w", err)
		}
		if existing != nil && existing.Status != idempotency.StatusFailed {
			log.Info("duplicate delivery skipped", zap.String("status", existing.Status))
			return nil
		}
		log.Info("retrying failed message")
	}

	if err := p.record(ctx, e); err != nil {
		if markErr := p.idem.MarkFailed(ctx, key, err.Error()); markErr != nil {
			log.Warn("mark idempotency failed", zap.Error(markErr))
		}
		return err
	}

	body, err := json.Marshal(map[string]string{"event_id": e.ID, "type": e.Type})
	if err != nil {
		log.Warn("encode processing result", zap.Error(err))
	}
	if err := p.idem.MarkDone(ctx, key, string(body), http.StatusOK); err != nil {
		return fmt.Errorf("failed to update idempotency: %w", err)
	}
	log.Info("event processed")
	return nil
}

func (p *Processor) record(ctx context.Context, e events.Event) error {
	dims := map[string]string{dimEventType: e.Type}
	if e.Status != "" {
		dims[dimStatus] = e.Status
	}
	if err := p.metrics.Put(ctx, metricOrderEvents, 1, cwtypes.StandardUnitCount, dims); err != nil {
		return err
	}
	if e.Type == events.OrderCreated {
		return p.metrics.Put(ctx, metricOrderValue, e.Total, cwtypes.StandardUnitNone, nil)
	}
	return nil
}

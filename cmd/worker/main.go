package main

import (
	"context"
	"log"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/config"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/idempotency"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/logging"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	clients, err := aws.NewClients(context.Background(), cfg.AWSRegion)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	p := NewProcessor(
		idempotency.NewStore(clients.DynamoDB, cfg.Idempotency, cfg.IdempotencyTTL),
		aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
		logger,
	)

	// RUN_LOCAL=true processes a single message from LOCAL_SQS_BODY and exits.
	if cfg.RunLocal {
		body := cfg.LocalSQSBody
		if body == "" {
			body = `{"id":"local-1","type":"order.created","order_id":"local-order-1","total":10}`
		}
		event := lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{{MessageId: "local-1", Body: body}}}
		if err := p.Handle(context.Background(), event); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(p.Handle)
}

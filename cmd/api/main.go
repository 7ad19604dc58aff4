package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/auth"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/config"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/events"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/handlers"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/logging"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/middleware"
)

func setupRouter(cfg handlers.HandlerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", middleware.RequestIDHeader},
		ExposeHeaders:   []string{"Content-Length", "Location", middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	cfg, err := config.Load()
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

	hub := events.NewHub(logger)
	publisher := events.Fanout{hub}
	if cfg.QueueURL != "" {
		publisher = append(publisher, events.NewSQS(aws.NewPublisher(clients.SQS, cfg.QueueURL)))
	} else {
		logger.Warn("ORDERS_QUEUE_URL not set, order events go to websocket clients only")
	}

	r := setupRouter(handlers.HandlerConfig{
		DynamoDBClient:  clients.DynamoDB,
		Tables:          cfg.Tables,
		Tokens:          auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Publisher:       publisher,
		Hub:             hub,
		UploadDir:       cfg.UploadDir,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		MaxCodeAttempts: cfg.MaxCodeAttempts,
		Logger:          logger,
	}, logger)

	// RUN_LOCAL=true serves HTTP directly for development.
	if cfg.RunLocal {
		serve(r, cfg.Port, logger)
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req lambdaevents.APIGatewayProxyRequest) (lambdaevents.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func serve(r *gin.Engine, port string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Info("starting local server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

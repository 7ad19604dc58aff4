package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Tables names every DynamoDB table the service reads or writes.
type Tables struct {
	Users         string `envconfig:"USERS_TABLE" default:"users"`
	Products      string `envconfig:"PRODUCTS_TABLE" default:"products"`
	Categories    string `envconfig:"CATEGORIES_TABLE" default:"categories"`
	Carts         string `envconfig:"CARTS_TABLE" default:"carts"`
	Orders        string `envconfig:"ORDERS_TABLE" default:"orders"`
	Addresses     string `envconfig:"ADDRESSES_TABLE" default:"addresses"`
	Payments      string `envconfig:"PAYMENTS_TABLE" default:"payments"`
	Ratings       string `envconfig:"RATINGS_TABLE" default:"ratings"`
	Confirmations string `envconfig:"CONFIRMATIONS_TABLE" default:"confirm_delivery"`
	Idempotency   string `envconfig:"IDEMPOTENCY_TABLE" default:"idempotency"`
}

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	RunLocal  bool   `envconfig:"RUN_LOCAL" default:"false"`
	AWSRegion string `envconfig:"AWS_REGION" default:"us-east-1"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	JWTSecret string        `envconfig:"JWT_SECRET"` // required by the API
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"1h"`

	UploadDir        string        `envconfig:"UPLOAD_DIR" default:"./uploads"`
	QueueURL         string        `envconfig:"ORDERS_QUEUE_URL"`
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE" default:"BuyTem/Orders"`
	IdempotencyTTL   time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"48h"`
	MaxCodeAttempts  int           `envconfig:"MAX_CODE_ATTEMPTS" default:"5"`
	LocalSQSBody     string        `envconfig:"LOCAL_SQS_BODY"` // worker RUN_LOCAL input

	Tables
}

// Load reads the API configuration: .env when present, then the process environment.
func Load() (*Config, error) {
	cfg, err := LoadWorker()
	if err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	return cfg, nil
}

// LoadWorker is Load without the settings only the API needs.
func LoadWorker() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.MaxCodeAttempts < 1 {
		return nil, fmt.Errorf("MAX_CODE_ATTEMPTS must be positive, got %d", cfg.MaxCodeAttempts)
	}
	return &cfg, nil
}

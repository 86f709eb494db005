package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog-service/database"
	"catalog-service/importer"
	aws_pkg "catalog-service/pkg/aws"
	"catalog-service/services"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// Config holds all environment variables for the catalog service.
type Config struct {
	Port    string
	Env     string
	Backend string

	Postgres           database.PostgresConfig
	DDBProductsTable   string
	DDBCategoriesTable string

	RedisURL          string
	StorageDir        string
	ImageFetchTimeout time.Duration
	UploadsPerMinute  int
	UploadBurst       int
	SNSImportTopicArn string
	ImageBucket       string
}

// secretFieldGetter is satisfied by aws_pkg.SecretsClient.
type secretFieldGetter interface {
	GetSecretField(ctx context.Context, name, field string) (string, error)
}

// LoadConfig loads environment variables into Config and validates them.
// If AWS_USE_SECRETS=true the Postgres password is read from Secrets Manager,
// falling back to POSTGRES_PASSWORD on failure.
func LoadConfig() (*Config, error) {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			applySecrets(context.Background(), cfg, aws_pkg.NewSecretsClient(awsCfg))
		} else {
			zap.L().Warn("AWS config unavailable, secrets not loaded", zap.Error(err))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFromEnv() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8082"),
		Env:     getEnv("APP_ENV", "development"),
		Backend: strings.ToLower(getEnv("CATALOG_BACKEND", BackendPostgres)),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
			TimeZone: os.Getenv("POSTGRES_TIMEZONE"),
		},
		DDBProductsTable:   getEnv("DDB_TABLE_PRODUCTS", "Products"),
		DDBCategoriesTable: getEnv("DDB_TABLE_CATEGORIES", "Categories"),
		RedisURL:           getEnv("REDIS_URL", "redis://redis:6379"),
		StorageDir:         getEnv("BULK_STORAGE_DIR", services.DefaultStorageDir),
		SNSImportTopicArn:  os.Getenv("SNS_IMPORT_TOPIC_ARN"),
		ImageBucket:        os.Getenv("AWS_S3_BUCKET"),
	}

	var err error
	if cfg.ImageFetchTimeout, err = durationEnv("IMAGE_FETCH_TIMEOUT", importer.DefaultFetchTimeout); err != nil {
		return nil, err
	}
	if cfg.UploadsPerMinute, err = intEnv("IMPORT_RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return nil, err
	}
	if cfg.UploadBurst, err = intEnv("IMPORT_RATE_LIMIT_BURST", 2); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings of the selected backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
		return c.Postgres.Validate()
	case BackendDynamoDB:
		if c.DDBProductsTable == "" || c.DDBCategoriesTable == "" {
			return fmt.Errorf("DDB_TABLE_PRODUCTS and DDB_TABLE_CATEGORIES are required")
		}
		return nil
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q (want %s or %s)", c.Backend, BackendPostgres, BackendDynamoDB)
	}
}

func applySecrets(ctx context.Context, cfg *Config, sm secretFieldGetter) {
	name := getEnv("POSTGRES_SECRET_NAME", "catalog/postgres")
	password, err := sm.GetSecretField(ctx, name, "password")
	if err != nil {
		zap.L().Warn("Failed to read Postgres password from Secrets Manager", zap.String("secret", name), zap.Error(err))
		return
	}
	if password != "" {
		cfg.Postgres.Password = password
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// Plain numbers are seconds.
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil || secs <= 0 {
			return 0, fmt.Errorf("invalid %s %q", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

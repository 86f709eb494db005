package database

import (
	"fmt"
	"time"

	"catalog-service/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	retryDelay      = 2 * time.Second
)

// PostgresConfig holds connection settings read from POSTGRES_* variables.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

// Validate checks required fields and fills defaults for the optional ones.
func (c *PostgresConfig) Validate() error {
	if c.User == "" {
		return fmt.Errorf("POSTGRES_USER environment variable not set")
	}
	if c.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD environment variable not set")
	}
	if c.DBName == "" {
		return fmt.Errorf("POSTGRES_DB environment variable not set")
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	return nil
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone,
	)
}

// ConnectPostgres opens the catalog database, retrying while Postgres starts,
// and migrates the catalog tables.
func ConnectPostgres(cfg PostgresConfig) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			break
		}
		zap.L().Warn("PostgreSQL connection failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", connectAttempts),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to PostgreSQL", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate creates or updates the catalog tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}, &models.ProductImage{}); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

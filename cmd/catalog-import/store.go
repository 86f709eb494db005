package main

import (
	"context"
	"fmt"
	"os"

	"catalog-service/database"
	aws_pkg "catalog-service/pkg/aws"
	"catalog-service/repository"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"gorm.io/gorm"
)

// stores are the catalog repositories plus whatever must be closed afterwards.
type stores struct {
	products   repository.ProductRepo
	categories repository.CategoryRepo
	db         *gorm.DB
}

func (s *stores) Close() {
	if s.db != nil {
		_ = database.Close(s.db)
	}
}

func openStores(ctx context.Context, backend string) (*stores, error) {
	switch backend {
	case "postgres", "":
		cfg := database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
			TimeZone: os.Getenv("POSTGRES_TIMEZONE"),
		}
		db, err := database.ConnectPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			products:   repository.NewGormProductRepository(db),
			categories: repository.NewGormCategoryRepository(db),
			db:         db,
		}, nil
	case "dynamodb":
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return &stores{
			products:   repository.NewDynamoAdapter(client, envOr("DDB_TABLE_PRODUCTS", "Products")),
			categories: repository.NewDynamoCategoryAdapter(client, envOr("DDB_TABLE_CATEGORIES", "Categories")),
		}, nil
	default:
		return nil, withCode(exitUsage, fmt.Errorf("unknown --backend %q", backend))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

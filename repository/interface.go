package repository

import (
	"context"
	"errors"

	"catalog-service/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable wraps connectivity failures of the backing store.
	ErrStoreUnavailable = errors.New("catalog store unavailable")
)

// ProductRepo defines the catalog operations the importer needs.
// Products are located by title; article and slug are never lookup keys.
type ProductRepo interface {
	Ping(ctx context.Context) error
	FindByTitle(ctx context.Context, title string) (*models.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	// Update overwrites the mutable import fields: article, description,
	// details, category, availability and the active flag.
	Update(ctx context.Context, product *models.Product) error
	// ClearImages removes the gallery and the preview image.
	ClearImages(ctx context.Context, productID uuid.UUID) error
	AddImage(ctx context.Context, image *models.ProductImage) error
	SetPreviewImage(ctx context.Context, productID uuid.UUID, url string) error
	FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) error
}

// CategoryRepo defines the read-only category lookups used during import.
type CategoryRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindAll(ctx context.Context) ([]models.Category, error)
}

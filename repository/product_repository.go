package repository

import (
	"context"
	"fmt"

	"catalog-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepo on PostgreSQL using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository.
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w: %v", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *GormProductRepository) FindByTitle(ctx context.Context, title string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).
		Where("title = ?", title).
		First(&p).Error; err != nil {
		return nil, classify("find product by title", err)
	}
	return &p, nil
}

// SlugExists also counts soft-deleted rows because they still hold the unique index.
func (r *GormProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Product{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, classify("check slug", err)
	}
	return count > 0, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return classify("create product", r.db.WithContext(ctx).Omit("Images").Create(product).Error)
}

func (r *GormProductRepository) Update(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).
		Model(&models.Product{ID: product.ID}).
		Select("Article", "Description", "Details", "CategoryID", "Availability", "IsActive").
		Updates(product).Error
	return classify("update product", err)
}

func (r *GormProductRepository) ClearImages(ctx context.Context, productID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Update("preview_image", "").Error
	})
	return classify("clear product images", err)
}

func (r *GormProductRepository) AddImage(ctx context.Context, image *models.ProductImage) error {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	return classify("add product image", r.db.WithContext(ctx).Create(image).Error)
}

func (r *GormProductRepository) SetPreviewImage(ctx context.Context, productID uuid.UUID, url string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("preview_image", url).Error
	return classify("set preview image", err)
}

func (r *GormProductRepository) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Select("id", "title").
		Where("category_id = ?", categoryID).
		Find(&products).Error; err != nil {
		return nil, classify("find products by category", err)
	}
	return products, nil
}

func (r *GormProductRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id IN ?", ids).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Product{}).Error
	})
	return classify("delete products", err)
}

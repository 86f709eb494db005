package repository

import (
	"context"

	"catalog-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCategoryRepository implements CategoryRepo using GORM.
type GormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, classify("find category by id", err)
	}
	return &c, nil
}

// FindByName matches the category name exactly.
func (r *GormCategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&c).Error; err != nil {
		return nil, classify("find category by name", err)
	}
	return &c, nil
}

func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, classify("list categories", err)
	}
	return categories, nil
}

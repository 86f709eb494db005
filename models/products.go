package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Availability is the stock state shown on the storefront.
type Availability string

const (
	AvailabilityInStock Availability = "in_stock"
	AvailabilityOrder   Availability = "order"
)

// Product is a catalog entry. Imports match existing products by Title only.
type Product struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title        string            `gorm:"type:varchar(500);not null;index" json:"title"`
	Article      string            `gorm:"type:varchar(100);index" json:"article"`
	Slug         string            `gorm:"type:varchar(500);not null;uniqueIndex" json:"slug"`
	CategoryID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"category_id"`
	Description  string            `gorm:"type:text" json:"description"`
	Details      datatypes.JSONMap `gorm:"type:jsonb" json:"details"`
	Availability Availability      `gorm:"type:varchar(20);not null;default:'in_stock'" json:"availability"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
	PreviewImage string            `gorm:"type:varchar(1024)" json:"preview_image,omitempty"`
	Images       []ProductImage    `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `gorm:"index" json:"-"`
}

// ProductImage is a gallery image. Order starts at 1; the preview image lives on Product.
type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Image     string    `gorm:"type:varchar(1024);not null" json:"image"`
	Alt       string    `gorm:"type:varchar(500)" json:"alt"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DetailsFromMap converts parsed characteristics into the jsonb column type.
func DetailsFromMap(m map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(200);not null;index" json:"name"`
	Slug      string     `gorm:"type:varchar(200);not null;uniqueIndex" json:"slug"`
	ParentID  *uuid.UUID `gorm:"type:uuid" json:"parent_id,omitempty"` // nil for top-level categories
	Order     int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

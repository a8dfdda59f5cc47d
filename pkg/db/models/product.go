package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog entry the core reads but never mutates.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description string           `gorm:"column:description"`
	PriceCents  int64            `gorm:"column:price_cents;not null"`
	ImageURL    string           `gorm:"column:image_url"`
	Sizes       []string         `gorm:"column:sizes;type:jsonb;serializer:json"`
	Colors      []string         `gorm:"column:colors;type:jsonb;serializer:json"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

package model

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 価格は最小通貨単位（円）で持つ
type Product struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug           string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	SKU            string         `gorm:"column:sku;type:varchar(100);not null;uniqueIndex" json:"sku"`
	Description    string         `gorm:"type:text" json:"description"`
	Price          int64          `gorm:"not null" json:"price"`
	CompareAtPrice *int64         `json:"compare_at_price"`
	CategoryID     *string        `gorm:"type:uuid;index" json:"category_id"`
	ImageURL       string         `gorm:"type:text" json:"image_url"`
	IsActive       bool           `gorm:"not null;default:false;index" json:"is_active"`
	IsFeatured     bool           `gorm:"not null;default:false;index" json:"is_featured"`
	SalesCount     int64          `gorm:"not null;default:0" json:"sales_count"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned when a product is created without one.
const DefaultCategory = "general"

// Product is a catalog listing. Rows are never hard-deleted; IsActive=false
// hides them from browsing and checkout.
type Product struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0;check:chk_products_stock_nonnegative,stock >= 0"`
	ImageURL    *string         `gorm:"column:image_url"`
	Category    string          `gorm:"column:category;not null;default:general;index"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

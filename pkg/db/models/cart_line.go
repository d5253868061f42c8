package models

import "time"

// CartLine is one product in a user's cart. A user's cart is the set of their
// lines; there is no cart header row.
type CartLine struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	ProductID uint64    `gorm:"column:product_id;primaryKey"`
	Quantity  int       `gorm:"column:quantity;not null;check:chk_cart_lines_quantity_positive,quantity > 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartLine) TableName() string { return "cart_lines" }

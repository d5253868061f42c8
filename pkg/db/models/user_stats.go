package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStats aggregates a user's purchases. Written only by checkout.
type UserStats struct {
	UserID          string          `gorm:"column:user_id;primaryKey"`
	DisplayName     string          `gorm:"column:display_name;not null;default:''"`
	TotalSpent      decimal.Decimal `gorm:"column:total_spent;type:numeric(12,2);not null;default:0"`
	TotalOrders     int             `gorm:"column:total_orders;not null;default:0"`
	FirstPurchaseAt *time.Time      `gorm:"column:first_purchase_at"`
	LastPurchaseAt  *time.Time      `gorm:"column:last_purchase_at"`
}

func (UserStats) TableName() string { return "user_stats" }

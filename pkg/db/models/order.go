package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

// Order is the committed result of a checkout. TotalAmount is frozen at creation.
type Order struct {
	ID          uint64            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      string            `gorm:"column:user_id;not null;index"`
	DisplayName string            `gorm:"column:display_name;not null;default:''"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Notes       *string           `gorm:"column:notes"`
	Lines       []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

// UserStatsDTO is a buyer's lifetime aggregate.
type UserStatsDTO struct {
	UserID          string          `json:"user_id"`
	DisplayName     string          `json:"display_name"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	TotalOrders     int             `json:"total_orders"`
	FirstPurchaseAt *time.Time      `json:"first_purchase_at,omitempty"`
	LastPurchaseAt  *time.Time      `json:"last_purchase_at,omitempty"`
}

func newUserStatsDTO(row *models.UserStats) *UserStatsDTO {
	return &UserStatsDTO{
		UserID:          row.UserID,
		DisplayName:     row.DisplayName,
		TotalSpent:      row.TotalSpent.Round(2),
		TotalOrders:     row.TotalOrders,
		FirstPurchaseAt: row.FirstPurchaseAt,
		LastPurchaseAt:  row.LastPurchaseAt,
	}
}

// ProductSales is one entry of the best-sellers list.
type ProductSales struct {
	ProductID    uint64          `json:"product_id"`
	Name         string          `json:"name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// RecentOrder is the header-only view used by the sales summary.
type RecentOrder struct {
	ID          uint64            `json:"id"`
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      enums.OrderStatus `json:"status"`
	ItemCount   int64             `json:"item_count"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SalesSummary is the admin dashboard payload.
type SalesSummary struct {
	TotalCompletedOrders int64           `json:"total_completed_orders"`
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	TopProducts          []ProductSales  `json:"top_products"`
	RecentOrders         []RecentOrder   `json:"recent_orders"`
}

package stats

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

// Repository reads committed order data and maintains the per-user aggregate.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the stats repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// RecordPurchase folds one order into the buyer's aggregate. The first
// purchase timestamp is only written when absent.
func (r *Repository) RecordPurchase(ctx context.Context, userID, displayName string, amount decimal.Decimal, at time.Time) error {
	row := models.UserStats{
		UserID:          userID,
		DisplayName:     displayName,
		TotalSpent:      amount,
		TotalOrders:     1,
		FirstPurchaseAt: &at,
		LastPurchaseAt:  &at,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_spent":       gorm.Expr("user_stats.total_spent + excluded.total_spent"),
				"total_orders":      gorm.Expr("user_stats.total_orders + 1"),
				"last_purchase_at":  gorm.Expr("excluded.last_purchase_at"),
				"first_purchase_at": gorm.Expr("COALESCE(user_stats.first_purchase_at, excluded.first_purchase_at)"),
				"display_name":      gorm.Expr("CASE WHEN excluded.display_name = '' THEN user_stats.display_name ELSE excluded.display_name END"),
			}),
		}).
		Create(&row).Error
}

func (r *Repository) FindUser(ctx context.Context, userID string) (*models.UserStats, error) {
	var row models.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// TopSpenders orders users by lifetime spend, user id breaking ties.
func (r *Repository) TopSpenders(ctx context.Context, limit int) ([]models.UserStats, error) {
	var rows []models.UserStats
	err := r.db.WithContext(ctx).
		Order("total_spent DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

type completedTotals struct {
	Orders  int64
	Revenue decimal.Decimal
}

func (r *Repository) CompletedTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	var totals completedTotals
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("status = ?", enums.OrderStatusCompleted).
		Scan(&totals).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	return totals.Orders, totals.Revenue.Round(2), nil
}

// ProductSalesRow is one product's sold quantity and revenue.
type ProductSalesRow struct {
	ProductID    uint64
	Name         string
	QuantitySold int64
	Revenue      decimal.Decimal
}

// TopProducts ranks products across non-cancelled orders by units sold,
// then revenue, then name.
func (r *Repository) TopProducts(ctx context.Context, limit int) ([]ProductSalesRow, error) {
	var rows []ProductSalesRow
	err := r.db.WithContext(ctx).
		Table("order_lines AS l").
		Select("l.product_id AS product_id, MAX(l.product_name) AS name, SUM(l.quantity) AS quantity_sold, SUM(l.total_price) AS revenue").
		Joins("JOIN orders AS o ON o.id = l.order_id").
		Where("o.status <> ?", enums.OrderStatusCancelled).
		Group("l.product_id").
		Order("quantity_sold DESC").
		Order("revenue DESC").
		Order("name ASC").
		Limit(limit).
		Scan(&rows).Error
	for i := range rows {
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	return rows, err
}

// RecentOrderRow is an order header plus its unit count.
type RecentOrderRow struct {
	ID          uint64
	UserID      string
	DisplayName string
	TotalAmount decimal.Decimal
	Status      enums.OrderStatus
	ItemCount   int64
	CreatedAt   time.Time
}

// RecentOrders returns the newest orders of any status.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]RecentOrderRow, error) {
	var rows []RecentOrderRow
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.id, o.user_id, o.display_name, o.total_amount, o.status, o.created_at, COALESCE(SUM(l.quantity), 0) AS item_count").
		Joins("LEFT JOIN order_lines AS l ON l.order_id = o.id").
		Group("o.id, o.user_id, o.display_name, o.total_amount, o.status, o.created_at").
		Order("o.created_at DESC").
		Order("o.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

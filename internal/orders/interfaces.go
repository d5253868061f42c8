package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLines(ctx context.Context, lines []models.OrderLine) error
	FindOrder(ctx context.Context, id uint64) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, id uint64) (*models.Order, error)
	ListOrders(ctx context.Context, query ListQuery) ([]models.Order, error)
	FindPendingOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint64, from, to enums.OrderStatus, notes *string) (bool, error)
}

package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

// OrderLine is the snapshot of one purchased product.
type OrderLine struct {
	ProductID   uint64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// OrderCreatedEvent announces a committed checkout so the bot can DM the buyer
// and open a ticket for manual fulfillment.
type OrderCreatedEvent struct {
	OrderID     uint64            `json:"order_id"`
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Lines       []OrderLine       `json:"lines"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderStatusChangedEvent covers completion, cancellation and expiry.
type OrderStatusChangedEvent struct {
	OrderID   uint64            `json:"order_id"`
	UserID    string            `json:"user_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	Reason    string            `json:"reason,omitempty"`
	Restocked bool              `json:"restocked"`
	ChangedAt time.Time         `json:"changed_at"`
}

// ProductSoldOutEvent fires when a checkout takes the last unit of a product.
type ProductSoldOutEvent struct {
	ProductID uint64 `json:"product_id"`
	Name      string `json:"name"`
	OrderID   uint64 `json:"order_id"`
}

package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/pagination"
)

// ListFilter narrows order listings. Zero values mean no restriction.
type ListFilter struct {
	UserID string
	Status *enums.OrderStatus
	pagination.Params
}

// ListQuery is a ListFilter with its cursor decoded, as the repository
// consumes it.
type ListQuery struct {
	UserID string
	Status *enums.OrderStatus
	After  *pagination.Cursor
	Limit  int
}

// OrderList is one page of orders, newest first.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// OrderLineDTO is the immutable snapshot taken at checkout.
type OrderLineDTO struct {
	ID          uint64          `json:"id"`
	ProductID   uint64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// OrderDTO is the API representation of an order.
type OrderDTO struct {
	ID          uint64            `json:"id"`
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      enums.OrderStatus `json:"status"`
	Notes       *string           `json:"notes,omitempty"`
	ItemCount   int               `json:"item_count"`
	Lines       []OrderLineDTO    `json:"lines"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewOrderDTO maps a persisted order (with its lines loaded) to the DTO.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:          order.ID,
		UserID:      order.UserID,
		DisplayName: order.DisplayName,
		TotalAmount: order.TotalAmount.Round(2),
		Status:      order.Status,
		Notes:       order.Notes,
		Lines:       make([]OrderLineDTO, 0, len(order.Lines)),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, line := range order.Lines {
		dto.ItemCount += line.Quantity
		dto.Lines = append(dto.Lines, OrderLineDTO{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Round(2),
			TotalPrice:  line.TotalPrice.Round(2),
		})
	}
	return dto
}

func newOrderDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	return out
}

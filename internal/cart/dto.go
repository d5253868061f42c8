package cart

import (
	"github.com/shopspring/decimal"
)

// LineDTO is one cart line priced at the current catalog price.
type LineDTO struct {
	ProductID uint64          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
}

// CartView is the live cart. Its total moves with catalog prices until checkout.
type CartView struct {
	UserID string          `json:"user_id"`
	Lines  []LineDTO       `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// IsEmpty reports whether the cart has no lines.
func (c *CartView) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

func newCartView(userID string, rows []LineRow) *CartView {
	view := &CartView{UserID: userID, Lines: make([]LineDTO, 0, len(rows)), Total: decimal.Zero}
	for _, row := range rows {
		lineTotal := row.Price.Mul(decimalFromInt(row.Quantity))
		view.Lines = append(view.Lines, LineDTO{
			ProductID: row.ProductID,
			Name:      row.Name,
			UnitPrice: row.Price,
			Quantity:  row.Quantity,
			LineTotal: lineTotal,
			Stock:     row.Stock,
			Available: row.IsActive && row.Quantity <= row.Stock,
		})
		view.Total = view.Total.Add(lineTotal)
	}
	return view
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

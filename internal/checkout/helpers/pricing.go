package helpers

import (
	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
)

// PriceLines snapshots the live price of every cart line into order lines and
// returns them with the order total. Callers validate lines first.
func PriceLines(lines []models.CartLine, products map[uint64]models.Product) ([]models.OrderLine, decimal.Decimal) {
	total := decimal.Zero
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		product := products[line.ProductID]
		unit := product.Price.Round(2)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		total = total.Add(lineTotal)
		out = append(out, models.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   unit,
			TotalPrice:  lineTotal,
		})
	}
	return out, total.Round(2)
}

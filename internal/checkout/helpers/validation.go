package helpers

import (
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

// Conflict names one cart line that can no longer be fulfilled.
type Conflict struct {
	ProductID uint64                    `json:"product_id"`
	Name      string                    `json:"name,omitempty"`
	Requested int                       `json:"requested"`
	Available int                       `json:"available"`
	Reason    enums.StockConflictReason `json:"reason"`
}

// ValidateLines checks every cart line against the live (locked) product rows
// and returns all offending lines, in cart order. An empty result means the
// cart can be fulfilled as-is.
func ValidateLines(lines []models.CartLine, products map[uint64]models.Product) []Conflict {
	var conflicts []Conflict
	for _, line := range lines {
		product, ok := products[line.ProductID]
		switch {
		case !ok:
			conflicts = append(conflicts, Conflict{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Reason:    enums.StockReasonMissing,
			})
		case !product.IsActive:
			conflicts = append(conflicts, Conflict{
				ProductID: line.ProductID,
				Name:      product.Name,
				Requested: line.Quantity,
				Available: 0,
				Reason:    enums.StockReasonInactive,
			})
		case line.Quantity > product.Stock:
			conflicts = append(conflicts, Conflict{
				ProductID: line.ProductID,
				Name:      product.Name,
				Requested: line.Quantity,
				Available: product.Stock,
				Reason:    enums.StockReasonInsufficient,
			})
		}
	}
	return conflicts
}

// IndexProducts keys products by id.
func IndexProducts(products []models.Product) map[uint64]models.Product {
	out := make(map[uint64]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

// ProductIDs returns the product ids referenced by lines, in line order.
func ProductIDs(lines []models.CartLine) []uint64 {
	ids := make([]uint64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

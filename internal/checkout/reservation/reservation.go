package reservation

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/internal/catalog"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

// StockRequest asks for Qty units of ProductID.
type StockRequest struct {
	ProductID uint64
	Qty       int
}

// StockResult reports the outcome of one request. Remaining is only set when
// Reserved is true.
type StockResult struct {
	ProductID uint64
	Qty       int
	Reserved  bool
	Remaining int
}

// ReserveStock decrements stock for every request inside tx, visiting products
// in ascending id order so concurrent reservations acquire row locks in the
// same sequence. A request is reserved only if the guarded decrement matched,
// so stock never drops below zero.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockRequest) ([]StockResult, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}
	}

	ordered := make([]StockRequest, len(requests))
	copy(ordered, requests)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	products := catalog.NewRepository(tx)
	results := make([]StockResult, 0, len(ordered))
	for _, req := range ordered {
		ok, err := products.DecrementStock(ctx, req.ProductID, req.Qty)
		if err != nil {
			return nil, err
		}
		result := StockResult{ProductID: req.ProductID, Qty: req.Qty, Reserved: ok}
		if ok {
			product, err := products.FindByID(ctx, req.ProductID)
			if err != nil {
				return nil, err
			}
			result.Remaining = product.Stock
		}
		results = append(results, result)
	}
	return results, nil
}

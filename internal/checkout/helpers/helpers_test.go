package helpers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
)

func TestValidateLinesCollectsEveryConflict(t *testing.T) {
	t.Parallel()
	products := IndexProducts([]models.Product{
		{ID: 1, Name: "Widget", Stock: 5, IsActive: true},
		{ID: 2, Name: "Retired", Stock: 9, IsActive: false},
		{ID: 3, Name: "Scarce", Stock: 1, IsActive: true},
	})
	lines := []models.CartLine{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 2},
		{ProductID: 4, Quantity: 1},
	}

	conflicts := ValidateLines(lines, products)
	require.Len(t, conflicts, 3)
	assert.Equal(t, Conflict{ProductID: 2, Name: "Retired", Requested: 1, Available: 0, Reason: enums.StockReasonInactive}, conflicts[0])
	assert.Equal(t, Conflict{ProductID: 3, Name: "Scarce", Requested: 2, Available: 1, Reason: enums.StockReasonInsufficient}, conflicts[1])
	assert.Equal(t, Conflict{ProductID: 4, Requested: 1, Reason: enums.StockReasonMissing}, conflicts[2])
}

func TestValidateLinesExactStockPasses(t *testing.T) {
	t.Parallel()
	products := IndexProducts([]models.Product{{ID: 1, Stock: 2, IsActive: true}})
	assert.Empty(t, ValidateLines([]models.CartLine{{ProductID: 1, Quantity: 2}}, products))
}

func TestPriceLinesUsesLivePrices(t *testing.T) {
	t.Parallel()
	products := IndexProducts([]models.Product{
		{ID: 1, Name: "Widget", Price: decimal.RequireFromString("10.00")},
		{ID: 2, Name: "Gizmo", Price: decimal.RequireFromString("0.335")},
	})
	lines := []models.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	}

	orderLines, total := PriceLines(lines, products)
	require.Len(t, orderLines, 2)
	assert.Equal(t, "Widget", orderLines[0].ProductName)
	assert.True(t, orderLines[0].UnitPrice.Equal(decimal.RequireFromString("10")))
	assert.True(t, orderLines[0].TotalPrice.Equal(decimal.RequireFromString("20")))
	assert.True(t, orderLines[1].UnitPrice.Equal(decimal.RequireFromString("0.34")))
	assert.True(t, orderLines[1].TotalPrice.Equal(decimal.RequireFromString("1.02")))
	assert.True(t, total.Equal(decimal.RequireFromString("21.02")), "got %s", total)
}

func TestProductIDs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []uint64{3, 1}, ProductIDs([]models.CartLine{{ProductID: 3}, {ProductID: 1}}))
	assert.Empty(t, ProductIDs(nil))
}

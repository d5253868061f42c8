package reservation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/dbtest"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

func TestReserveStock(t *testing.T) {
	t.Parallel()

	client := dbtest.Open(t)
	ctx := context.Background()
	productA := seedProduct(t, client.DB(), "A", 5)
	productB := seedProduct(t, client.DB(), "B", 1)

	requests := []StockRequest{
		{ProductID: productB, Qty: 1},
		{ProductID: productA, Qty: 3},
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		results, terr := ReserveStock(ctx, tx, requests)
		if terr != nil {
			return terr
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ProductID != productA || results[1].ProductID != productB {
			t.Fatalf("expected ascending product order, got %+v", results)
		}
		if !results[0].Reserved || results[0].Remaining != 2 {
			t.Fatalf("unexpected result for A: %+v", results[0])
		}
		if !results[1].Reserved || results[1].Remaining != 0 {
			t.Fatalf("unexpected result for B: %+v", results[1])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	if got := loadStock(t, client.DB(), productA); got != 2 {
		t.Fatalf("expected stock 2 for A, got %d", got)
	}
	if got := loadStock(t, client.DB(), productB); got != 0 {
		t.Fatalf("expected stock 0 for B, got %d", got)
	}
}

func TestReserveStockNeverGoesNegative(t *testing.T) {
	t.Parallel()

	client := dbtest.Open(t)
	ctx := context.Background()
	product := seedProduct(t, client.DB(), "Scarce", 2)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		results, terr := ReserveStock(ctx, tx, []StockRequest{{ProductID: product, Qty: 3}})
		if terr != nil {
			return terr
		}
		if results[0].Reserved {
			t.Fatalf("expected reservation to be refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}
	if got := loadStock(t, client.DB(), product); got != 2 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

func TestReserveStockInvalidQty(t *testing.T) {
	t.Parallel()

	client := dbtest.Open(t)
	product := seedProduct(t, client.DB(), "A", 5)

	_, err := ReserveStock(context.Background(), client.DB(), []StockRequest{{ProductID: product, Qty: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ReserveStock(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock int) uint64 {
	t.Helper()
	product := models.Product{Name: name, Price: decimal.NewFromInt(1), Stock: stock, IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func loadStock(t *testing.T, db *gorm.DB, id uint64) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

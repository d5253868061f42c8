package cart

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/internal/catalog"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

// Service manages per-user carts.
type Service interface {
	AddToCart(ctx context.Context, userID string, productID uint64, quantity int) (*LineDTO, error)
	SetQuantity(ctx context.Context, userID string, productID uint64, quantity int) (*LineDTO, error)
	GetCart(ctx context.Context, userID string) (*CartView, error)
	RemoveFromCart(ctx context.Context, userID string, productID uint64) error
	ClearCart(ctx context.Context, userID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	products *catalog.Repository
	tx       txRunner
}

// NewService constructs a cart service.
func NewService(repo *Repository, products *catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx}, nil
}

// AddToCart adds quantity units (1 when zero) on top of whatever the user
// already holds. The stock check is advisory: checkout re-validates.
func (s *service) AddToCart(ctx context.Context, userID string, productID uint64, quantity int) (*LineDTO, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"field": "quantity"})
	}

	return s.writeLine(ctx, userID, productID, func(existing int) int { return addClamped(existing, quantity) })
}

// addClamped sums two non-negative quantities, saturating at math.MaxInt so
// an oversized request fails the stock check instead of wrapping negative.
func addClamped(existing, quantity int) int {
	if quantity > math.MaxInt-existing {
		return math.MaxInt
	}
	return existing + quantity
}

// SetQuantity replaces the line quantity; zero removes the line.
func (s *service) SetQuantity(ctx context.Context, userID string, productID uint64, quantity int) (*LineDTO, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
			WithDetails(map[string]any{"field": "quantity"})
	}
	if quantity == 0 {
		return nil, s.RemoveFromCart(ctx, userID, productID)
	}
	return s.writeLine(ctx, userID, productID, func(int) int { return quantity })
}

func (s *service) writeLine(ctx context.Context, userID string, productID uint64, next func(existing int) int) (*LineDTO, error) {
	var result *LineDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).FindByIDForUpdate(ctx, productID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": productID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		txRepo := s.repo.WithTx(tx)
		existing := 0
		line, err := txRepo.FindLine(ctx, userID, productID)
		switch {
		case err == nil:
			existing = line.Quantity
		case !db.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		quantity := next(existing)
		if !product.IsActive {
			return outOfStock(product, quantity, existing, enums.StockReasonInactive)
		}
		if quantity > product.Stock {
			return outOfStock(product, quantity, existing, enums.StockReasonInsufficient)
		}

		if err := txRepo.SaveLine(ctx, &models.CartLine{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
		}

		result = &LineDTO{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
			LineTotal: product.Price.Mul(decimalFromInt(quantity)),
			Stock:     product.Stock,
			Available: true,
		}
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "update cart")
	}
	return result, nil
}

func (s *service) GetCart(ctx context.Context, userID string) (*CartView, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListView(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return newCartView(userID, rows), nil
}

func (s *service) RemoveFromCart(ctx context.Context, userID string, productID uint64) error {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return err
	}
	removed, err := s.repo.DeleteLine(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

// ClearCart empties the cart. Clearing an empty cart succeeds.
func (s *service) ClearCart(ctx context.Context, userID string) error {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return err
	}
	if _, err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// OutOfStockDetails is attached to OUT_OF_STOCK errors.
type OutOfStockDetails struct {
	ProductID uint64                    `json:"product_id"`
	Name      string                    `json:"name"`
	Requested int                       `json:"requested"`
	InCart    int                       `json:"in_cart"`
	Available int                       `json:"available"`
	Reason    enums.StockConflictReason `json:"reason"`
}

func outOfStock(product *models.Product, requested, inCart int, reason enums.StockConflictReason) error {
	available := product.Stock
	if !product.IsActive {
		available = 0
	}
	message := fmt.Sprintf("only %d of %s available", available, product.Name)
	if reason == enums.StockReasonInactive {
		message = fmt.Sprintf("%s is no longer for sale", product.Name)
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, message).WithDetails(OutOfStockDetails{
		ProductID: product.ID,
		Name:      product.Name,
		Requested: requested,
		InCart:    inCart,
		Available: available,
		Reason:    reason,
	})
}

func normalizeUserID(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required").
			WithDetails(map[string]any{"field": "user_id"})
	}
	return trimmed, nil
}

func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

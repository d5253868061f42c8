package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/pagination"
)

// Service exposes catalog management and browsing.
type Service interface {
	AddProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uint64) (*ProductDTO, error)
	ListProducts(ctx context.Context, filter ListFilter) (*ProductList, error)
	ListAvailable(ctx context.Context, category string, params pagination.Params) (*ProductList, error)
	SetStock(ctx context.Context, id uint64, stock int) (*ProductDTO, error)
	UpdateFields(ctx context.Context, id uint64, input UpdateProductInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, id uint64) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
	ImageURL    *string
	Category    string
}

// UpdateProductInput holds optional mutation values. Nil fields are left untouched.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    *string
	Category    *string
	IsActive    *bool
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AddProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if err := validateStock(input.Stock); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        name,
		Description: trimOptional(input.Description),
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		ImageURL:    trimOptional(input.ImageURL),
		Category:    normalizeCategory(input.Category),
		IsActive:    true,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

func (s *service) GetProduct(ctx context.Context, id uint64) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) (*ProductList, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	after, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	rows, err := s.repo.List(ctx, filter, after, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	rows, next := pagination.Page(rows, filter.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &ProductList{Products: newProductDTOs(rows), NextCursor: next}, nil
}

// ListAvailable is the browse listing: active products with stock left.
func (s *service) ListAvailable(ctx context.Context, category string, params pagination.Params) (*ProductList, error) {
	return s.ListProducts(ctx, ListFilter{ActiveOnly: true, InStockOnly: true, Category: category, Params: params})
}

func (s *service) SetStock(ctx context.Context, id uint64, stock int) (*ProductDTO, error) {
	if err := validateStock(stock); err != nil {
		return nil, err
	}
	return s.update(ctx, id, map[string]any{"stock": stock})
}

func (s *service) UpdateFields(ctx context.Context, id uint64, input UpdateProductInput) (*ProductDTO, error) {
	values, err := updateColumns(input)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, values)
}

// Deactivate is the catalog's soft delete. Existing orders keep their snapshots.
func (s *service) Deactivate(ctx context.Context, id uint64) (*ProductDTO, error) {
	return s.update(ctx, id, map[string]any{"is_active": false})
}

func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func (s *service) update(ctx context.Context, id uint64, values map[string]any) (*ProductDTO, error) {
	found, err := s.repo.UpdateColumns(ctx, id, values)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	if !found {
		return nil, productNotFound(id)
	}
	return s.GetProduct(ctx, id)
}

func (s *service) load(ctx context.Context, id uint64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, productNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// updateColumns maps the whitelisted fields of input onto column values,
// validating each one present.
func updateColumns(input UpdateProductInput) (map[string]any, error) {
	values := map[string]any{}
	if input.Name != nil {
		name, err := normalizeName(*input.Name)
		if err != nil {
			return nil, err
		}
		values["name"] = name
	}
	if input.Description != nil {
		values["description"] = trimOptional(input.Description)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		values["price"] = input.Price.Round(2)
	}
	if input.Stock != nil {
		if err := validateStock(*input.Stock); err != nil {
			return nil, err
		}
		values["stock"] = *input.Stock
	}
	if input.ImageURL != nil {
		values["image_url"] = trimOptional(input.ImageURL)
	}
	if input.Category != nil {
		values["category"] = normalizeCategory(*input.Category)
	}
	if input.IsActive != nil {
		values["is_active"] = *input.IsActive
	}
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	return values, nil
}

func productNotFound(id uint64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"product_id": id})
}

func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fieldError("name", "name is required")
	}
	return trimmed, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fieldError("price", "price must be non-negative")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return fieldError("stock", "stock must be non-negative")
	}
	return nil
}

func normalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return models.DefaultCategory
	}
	return trimmed
}

// trimOptional turns blank optional strings into NULL.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"field": field})
}

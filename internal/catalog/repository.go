package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/pagination"
)

// ListFilter narrows product listings. The zero value lists the first page
// of everything.
type ListFilter struct {
	ActiveOnly  bool
	InStockOnly bool
	Category    string
	pagination.Params
}

// Repository wraps product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new product row and fills its id.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a product and row-locks it for the rest of the
// transaction. Only meaningful on a repository bound via WithTx.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDsForUpdate row-locks the given products in ascending id order so
// concurrent checkouts always acquire locks in the same sequence.
func (r *Repository) FindByIDsForUpdate(ctx context.Context, ids []uint64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).
		Error
	return rows, err
}

// List returns up to limit products newest first, starting after the given
// cursor when one is set.
func (r *Repository) List(ctx context.Context, filter ListFilter, after *pagination.Cursor, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.InStockOnly {
		query = query.Where("stock > 0")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if after != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var rows []models.Product
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// UpdateColumns applies the given column values and reports whether the row exists.
func (r *Repository) UpdateColumns(ctx context.Context, id uint64, values map[string]any) (bool, error) {
	values["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DecrementStock removes qty units only when at least qty remain. It returns
// false when the guard rejected the update, so stock can never go negative.
func (r *Repository) DecrementStock(ctx context.Context, id uint64, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock returns qty units to a product.
func (r *Repository) IncrementStock(ctx context.Context, id uint64, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now().UTC(),
		}).
		Error
}

// ListCategories returns the distinct categories that currently have
// something to sell, ascending.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ? AND stock > 0", true).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).
		Error
	return categories, err
}

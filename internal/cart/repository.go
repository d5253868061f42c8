package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
)

// LineRow is a cart line joined with the live product row.
type LineRow struct {
	ProductID uint64
	Quantity  int
	Name      string
	Price     decimal.Decimal
	Stock     int
	IsActive  bool
	CreatedAt time.Time
}

// Repository persists cart lines.
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

// FindLine returns the user's line for productID or gorm.ErrRecordNotFound.
func (r *Repository) FindLine(ctx context.Context, userID string, productID uint64) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&line).
		Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// SaveLine inserts the line or overwrites the quantity of an existing one.
func (r *Repository) SaveLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(line).
		Error
}

// DeleteLine removes a single line and reports whether one existed.
func (r *Repository) DeleteLine(ctx context.Context, userID string, productID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear removes every line of the user.
func (r *Repository) Clear(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// ListLines returns the user's raw lines in insertion order.
func (r *Repository) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&lines).
		Error
	return lines, err
}

// ListView joins the user's lines with current product state.
func (r *Repository) ListView(ctx context.Context, userID string) ([]LineRow, error) {
	var rows []LineRow
	err := r.db.WithContext(ctx).
		Table("cart_lines AS cl").
		Select(`cl.product_id AS product_id,
			cl.quantity AS quantity,
			p.name AS name,
			p.price AS price,
			p.stock AS stock,
			p.is_active AS is_active,
			cl.created_at AS created_at`).
		Joins("JOIN products p ON p.id = cl.product_id").
		Where("cl.user_id = ?", userID).
		Order("cl.created_at ASC").
		Order("cl.product_id ASC").
		Scan(&rows).
		Error
	return rows, err
}

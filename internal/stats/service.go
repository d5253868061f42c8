package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

const (
	topProductsLimit   = 5
	recentOrdersLimit  = 10
	defaultLeaderboard = 10
	maxLeaderboard     = 100
)

// Service is the read-only stats contract. Aggregates are written by checkout only.
type Service interface {
	GetUserStats(ctx context.Context, userID string) (*UserStatsDTO, error)
	GetSalesSummary(ctx context.Context) (*SalesSummary, error)
	Leaderboard(ctx context.Context, limit int) ([]UserStatsDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs the stats service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetUserStats(ctx context.Context, userID string) (*UserStatsDTO, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	row, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no purchases recorded for user").
				WithDetails(map[string]any{"user_id": userID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user stats")
	}
	return newUserStatsDTO(row), nil
}

func (s *service) GetSalesSummary(ctx context.Context) (*SalesSummary, error) {
	count, revenue, err := s.repo.CompletedTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completed order totals")
	}
	top, err := s.repo.TopProducts(ctx, topProductsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "top products")
	}
	recent, err := s.repo.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recent orders")
	}

	summary := &SalesSummary{
		TotalCompletedOrders: count,
		TotalRevenue:         revenue,
		TopProducts:          make([]ProductSales, 0, len(top)),
		RecentOrders:         make([]RecentOrder, 0, len(recent)),
	}
	for _, row := range top {
		summary.TopProducts = append(summary.TopProducts, ProductSales(row))
	}
	for _, row := range recent {
		summary.RecentOrders = append(summary.RecentOrders, RecentOrder{
			ID:          row.ID,
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			TotalAmount: row.TotalAmount.Round(2),
			Status:      row.Status,
			ItemCount:   row.ItemCount,
			CreatedAt:   row.CreatedAt,
		})
	}
	return summary, nil
}

func (s *service) Leaderboard(ctx context.Context, limit int) ([]UserStatsDTO, error) {
	if limit <= 0 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboard {
		limit = maxLeaderboard
	}
	rows, err := s.repo.TopSpenders(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "leaderboard")
	}
	out := make([]UserStatsDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *newUserStatsDTO(&rows[i]))
	}
	return out, nil
}

package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/db"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/dbtest"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

type line struct {
	productID uint64
	name      string
	qty       int
	price     string
}

func newTestService(t *testing.T) (*db.Client, *Repository, Service) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo)
	require.NoError(t, err)
	return client, repo, svc
}

func seedOrder(t *testing.T, client *db.Client, userID string, status enums.OrderStatus, lines ...line) *models.Order {
	t.Helper()
	order := models.Order{UserID: userID, Status: status, TotalAmount: decimal.Zero}
	for _, l := range lines {
		total := decimal.RequireFromString(l.price).Mul(decimal.NewFromInt(int64(l.qty)))
		order.TotalAmount = order.TotalAmount.Add(total)
		order.Lines = append(order.Lines, models.OrderLine{
			ProductID:   l.productID,
			ProductName: l.name,
			Quantity:    l.qty,
			UnitPrice:   decimal.RequireFromString(l.price),
			TotalPrice:  total,
		})
	}
	require.NoError(t, client.DB().Create(&order).Error)
	return &order
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestRecordPurchaseUpserts(t *testing.T) {
	_, repo, svc := newTestService(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	require.NoError(t, repo.RecordPurchase(ctx, "u1", "Alpha", decimal.RequireFromString("10.50"), first))
	require.NoError(t, repo.RecordPurchase(ctx, "u1", "", decimal.RequireFromString("4.25"), second))

	got, err := svc.GetUserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalOrders)
	assert.True(t, got.TotalSpent.Equal(decimal.RequireFromString("14.75")), "spent %s", got.TotalSpent)
	assert.Equal(t, "Alpha", got.DisplayName, "blank names keep the stored one")
	require.NotNil(t, got.FirstPurchaseAt)
	require.NotNil(t, got.LastPurchaseAt)
	assert.True(t, got.FirstPurchaseAt.Equal(first))
	assert.True(t, got.LastPurchaseAt.Equal(second))
}

func TestGetUserStatsErrors(t *testing.T) {
	_, _, svc := newTestService(t)

	_, err := svc.GetUserStats(context.Background(), "  ")
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.GetUserStats(context.Background(), "ghost")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestSalesSummary(t *testing.T) {
	client, _, svc := newTestService(t)
	ctx := context.Background()

	seedOrder(t, client, "u1", enums.OrderStatusCompleted, line{1, "Apple", 3, "1.00"}, line{2, "Banana", 3, "2.00"})
	seedOrder(t, client, "u2", enums.OrderStatusPending, line{3, "Cherry", 5, "1.00"})
	seedOrder(t, client, "u3", enums.OrderStatusCancelled, line{4, "Durian", 50, "9.00"})
	seedOrder(t, client, "u1", enums.OrderStatusCompleted, line{5, "Elder", 1, "0.50"}, line{6, "Fig", 1, "0.50"}, line{7, "Grape", 1, "0.10"})

	summary, err := svc.GetSalesSummary(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 2, summary.TotalCompletedOrders)
	assert.True(t, summary.TotalRevenue.Equal(decimal.RequireFromString("10.10")), "revenue %s", summary.TotalRevenue)

	require.Len(t, summary.TopProducts, 5)
	names := make([]string, 0, 5)
	for _, p := range summary.TopProducts {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Cherry", "Banana", "Apple", "Elder", "Fig"}, names,
		"quantity desc, revenue desc, then name; cancelled orders excluded")
	assert.EqualValues(t, 3, summary.TopProducts[1].QuantitySold)
	assert.True(t, summary.TopProducts[1].Revenue.Equal(decimal.RequireFromString("6")))

	require.Len(t, summary.RecentOrders, 4)
	assert.Equal(t, "u1", summary.RecentOrders[0].UserID)
	assert.EqualValues(t, 3, summary.RecentOrders[0].ItemCount)
	assert.Equal(t, enums.OrderStatusCancelled, summary.RecentOrders[1].Status, "recent orders include every status")
}

func TestSalesSummaryLimitsRecentOrders(t *testing.T) {
	client, _, svc := newTestService(t)
	var last *models.Order
	for i := 0; i < 12; i++ {
		last = seedOrder(t, client, fmt.Sprintf("u%d", i), enums.OrderStatusCompleted, line{1, "Widget", 1, "1.00"})
	}

	summary, err := svc.GetSalesSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.RecentOrders, 10)
	assert.Equal(t, last.ID, summary.RecentOrders[0].ID)
	assert.EqualValues(t, 12, summary.TotalCompletedOrders)
}

func TestSalesSummaryEmpty(t *testing.T) {
	_, _, svc := newTestService(t)
	summary, err := svc.GetSalesSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalCompletedOrders)
	assert.True(t, summary.TotalRevenue.IsZero())
	assert.Empty(t, summary.TopProducts)
	assert.Empty(t, summary.RecentOrders)
}

func TestLeaderboard(t *testing.T) {
	_, repo, svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.RecordPurchase(ctx, "b", "", decimal.RequireFromString("5"), now))
	require.NoError(t, repo.RecordPurchase(ctx, "a", "", decimal.RequireFromString("5"), now))
	require.NoError(t, repo.RecordPurchase(ctx, "c", "", decimal.RequireFromString("20"), now))

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{board[0].UserID, board[1].UserID, board[2].UserID})

	top, err := svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "c", top[0].UserID)
}

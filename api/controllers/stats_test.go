package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/internal/stats"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

type stubStats struct {
	limit int
	err   error
}

func (s *stubStats) GetUserStats(_ context.Context, userID string) (*stats.UserStatsDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stats.UserStatsDTO{UserID: userID, TotalSpent: decimal.RequireFromString("12.50"), TotalOrders: 2}, nil
}

func (s *stubStats) GetSalesSummary(context.Context) (*stats.SalesSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stats.SalesSummary{TotalRevenue: decimal.Zero}, nil
}

func (s *stubStats) Leaderboard(_ context.Context, limit int) ([]stats.UserStatsDTO, error) {
	s.limit = limit
	return []stats.UserStatsDTO{}, s.err
}

func TestUserStats(t *testing.T) {
	rec, _ := serve(t, UserStats(&stubStats{}, testLogger()), newRequest(http.MethodGet, "/", "", "u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	svc := &stubStats{err: pkgerrors.New(pkgerrors.CodeNotFound, "no purchases recorded for user")}
	rec, _ = serve(t, UserStats(svc, testLogger()), newRequest(http.MethodGet, "/", "", "u1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown buyer, got %d", rec.Code)
	}
}

func TestLeaderboardLimit(t *testing.T) {
	svc := &stubStats{}
	rec, _ := serve(t, Leaderboard(svc, testLogger()), newRequest(http.MethodGet, "/?limit=3", "", "", nil))
	if rec.Code != http.StatusOK || svc.limit != 3 {
		t.Fatalf("expected limit 3, got %d %d", rec.Code, svc.limit)
	}
}

func TestAdminSalesSummaryDependencyError(t *testing.T) {
	svc := &stubStats{err: pkgerrors.New(pkgerrors.CodeDependency, "completed order totals")}
	rec, env := serve(t, AdminSalesSummary(svc, testLogger()), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusServiceUnavailable || !env.Error.Retryable {
		t.Fatalf("expected retryable 503, got %d %+v", rec.Code, env.Error)
	}
}

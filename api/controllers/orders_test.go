package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ziggy12122/STK-Bot-sub000/internal/orders"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/pagination"
)

type stubOrders struct {
	filter     *orders.ListFilter
	userPage   pagination.Params
	transition *orders.TransitionInput
	op         string
	err        error
}

func (s *stubOrders) GetOrder(_ context.Context, id uint64) (*orders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: id}, nil
}

func (s *stubOrders) GetUserOrder(_ context.Context, userID string, id uint64) (*orders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	if userID != "owner" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return &orders.OrderDTO{ID: id, UserID: userID}, nil
}

func (s *stubOrders) ListUserOrders(_ context.Context, _ string, params pagination.Params) (*orders.OrderList, error) {
	s.userPage = params
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderList{Orders: []orders.OrderDTO{}, NextCursor: "next"}, nil
}

func (s *stubOrders) ListOrders(_ context.Context, filter orders.ListFilter) (*orders.OrderList, error) {
	s.filter = &filter
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderList{Orders: []orders.OrderDTO{}}, nil
}

func (s *stubOrders) CompleteOrder(_ context.Context, input orders.TransitionInput) (*orders.OrderDTO, error) {
	s.op, s.transition = "complete", &input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: input.OrderID, Status: enums.OrderStatusCompleted}, nil
}

func (s *stubOrders) CancelOrder(_ context.Context, input orders.TransitionInput) (*orders.OrderDTO, error) {
	s.op, s.transition = "cancel", &input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: input.OrderID, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrders) ExpireOrder(context.Context, uint64) (*orders.OrderDTO, error) {
	return nil, nil
}

func TestUserOrderList(t *testing.T) {
	svc := &stubOrders{}
	rec, env := serve(t, UserOrderList(svc, testLogger()), newRequest(http.MethodGet, "/", "", "u1", nil))
	if rec.Code != http.StatusOK || svc.userPage.Limit != pagination.DefaultLimit || svc.userPage.Cursor != "" {
		t.Fatalf("expected default page, got %d %+v", rec.Code, svc.userPage)
	}
	var list orders.OrderList
	if err := json.Unmarshal(env.Data, &list); err != nil || list.NextCursor != "next" {
		t.Fatalf("expected next cursor in payload, got %s (%v)", env.Data, err)
	}

	rec, _ = serve(t, UserOrderList(svc, testLogger()), newRequest(http.MethodGet, "/?limit=3&cursor=%20abc%20", "", "u1", nil))
	if rec.Code != http.StatusOK || svc.userPage.Limit != 3 || svc.userPage.Cursor != "abc" {
		t.Fatalf("expected cursor forwarded, got %d %+v", rec.Code, svc.userPage)
	}

	rec, _ = serve(t, UserOrderList(svc, testLogger()), newRequest(http.MethodGet, "/?limit=500", "", "u1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range limit, got %d", rec.Code)
	}
}

func TestUserOrderDetailHidesOtherUsers(t *testing.T) {
	params := map[string]string{"orderID": "12"}
	rec, _ := serve(t, UserOrderDetail(&stubOrders{}, testLogger()), newRequest(http.MethodGet, "/", "", "owner", params))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected owner to see order, got %d", rec.Code)
	}
	rec, _ = serve(t, UserOrderDetail(&stubOrders{}, testLogger()), newRequest(http.MethodGet, "/", "", "stranger", params))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", rec.Code)
	}
}

func TestAdminOrderListStatusFilter(t *testing.T) {
	svc := &stubOrders{}
	rec, _ := serve(t, AdminOrderList(svc, testLogger()), newRequest(http.MethodGet, "/?status=pending&user_id=u9&limit=5", "", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.filter.Status == nil || *svc.filter.Status != enums.OrderStatusPending || svc.filter.UserID != "u9" || svc.filter.Limit != 5 {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}

	svc = &stubOrders{}
	rec, _ = serve(t, AdminOrderList(svc, testLogger()), newRequest(http.MethodGet, "/?status=shipped", "", "", nil))
	if rec.Code != http.StatusBadRequest || svc.filter != nil {
		t.Fatalf("expected unknown status rejected, got %d", rec.Code)
	}
}

func TestAdminCompleteOrder(t *testing.T) {
	svc := &stubOrders{}
	body := `{"notes":"delivered in DM","actor":{"user_id":"admin-1","display_name":"Mod"}}`
	rec, _ := serve(t, AdminCompleteOrder(svc, testLogger()), newRequest(http.MethodPost, "/", body, "", map[string]string{"orderID": "3"}))
	if rec.Code != http.StatusOK || svc.op != "complete" {
		t.Fatalf("expected completion, got %d %s", rec.Code, svc.op)
	}
	if svc.transition.OrderID != 3 || svc.transition.Notes == nil || *svc.transition.Notes != "delivered in DM" {
		t.Fatalf("unexpected input %+v", svc.transition)
	}
	if svc.transition.Actor == nil || svc.transition.Actor.UserID != "admin-1" {
		t.Fatalf("expected actor, got %+v", svc.transition.Actor)
	}
}

func TestAdminCancelOrderWithoutBody(t *testing.T) {
	svc := &stubOrders{}
	rec, _ := serve(t, AdminCancelOrder(svc, testLogger()), newRequest(http.MethodPost, "/", "", "", map[string]string{"orderID": "3"}))
	if rec.Code != http.StatusOK || svc.op != "cancel" || svc.transition.Actor != nil {
		t.Fatalf("expected bare cancel, got %d %+v", rec.Code, svc.transition)
	}
}

func TestAdminOrderDecisionStateConflict(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")}
	rec, env := serve(t, AdminCancelOrder(svc, testLogger()), newRequest(http.MethodPost, "/", "", "", map[string]string{"orderID": "3"}))
	if rec.Code != http.StatusUnprocessableEntity || env.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %d %s", rec.Code, env.Error.Code)
	}
}

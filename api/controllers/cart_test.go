package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/internal/cart"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
)

type cartCall struct {
	op        string
	userID    string
	productID uint64
	quantity  int
}

type stubCart struct {
	calls []cartCall
	err   error
}

func (s *stubCart) AddToCart(_ context.Context, userID string, productID uint64, quantity int) (*cart.LineDTO, error) {
	s.calls = append(s.calls, cartCall{"add", userID, productID, quantity})
	if s.err != nil {
		return nil, s.err
	}
	return &cart.LineDTO{ProductID: productID, Quantity: quantity}, nil
}

func (s *stubCart) SetQuantity(_ context.Context, userID string, productID uint64, quantity int) (*cart.LineDTO, error) {
	s.calls = append(s.calls, cartCall{"set", userID, productID, quantity})
	if s.err != nil {
		return nil, s.err
	}
	return &cart.LineDTO{ProductID: productID, Quantity: quantity}, nil
}

func (s *stubCart) GetCart(_ context.Context, userID string) (*cart.CartView, error) {
	s.calls = append(s.calls, cartCall{op: "get", userID: userID})
	return &cart.CartView{UserID: userID, Lines: []cart.LineDTO{}, Total: decimal.Zero}, s.err
}

func (s *stubCart) RemoveFromCart(_ context.Context, userID string, productID uint64) error {
	s.calls = append(s.calls, cartCall{op: "remove", userID: userID, productID: productID})
	return s.err
}

func (s *stubCart) ClearCart(_ context.Context, userID string) error {
	s.calls = append(s.calls, cartCall{op: "clear", userID: userID})
	return s.err
}

func TestCartAddItem(t *testing.T) {
	svc := &stubCart{}
	rec, _ := serve(t, CartAddItem(svc, testLogger()), newRequest(http.MethodPost, "/", `{"product_id":5,"quantity":2}`, "u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.calls) != 1 || svc.calls[0] != (cartCall{"add", "u1", 5, 2}) {
		t.Fatalf("unexpected calls %+v", svc.calls)
	}
}

func TestCartAddItemRejectsNonPositiveQuantity(t *testing.T) {
	svc := &stubCart{}
	rec, env := serve(t, CartAddItem(svc, testLogger()), newRequest(http.MethodPost, "/", `{"product_id":5,"quantity":0}`, "u1", nil))
	if rec.Code != http.StatusBadRequest || env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %d %s", rec.Code, env.Error.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCartAddItemOutOfStock(t *testing.T) {
	svc := &stubCart{err: pkgerrors.New(pkgerrors.CodeOutOfStock, "only 1 left").
		WithDetails(map[string]any{"available": 1})}
	rec, env := serve(t, CartAddItem(svc, testLogger()), newRequest(http.MethodPost, "/", `{"product_id":5,"quantity":2}`, "u1", nil))
	if rec.Code != http.StatusConflict || env.Error.Code != string(pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %d %s", rec.Code, env.Error.Code)
	}
	if env.Error.Message != "only 1 left" || len(env.Error.Details) == 0 {
		t.Fatalf("expected message and details, got %+v", env.Error)
	}
}

func TestCartRequiresUser(t *testing.T) {
	svc := &stubCart{}
	rec, _ := serve(t, CartFetch(svc, testLogger()), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusBadRequest || len(svc.calls) != 0 {
		t.Fatalf("expected 400 without user, got %d", rec.Code)
	}
}

func TestCartSetRemoveClear(t *testing.T) {
	svc := &stubCart{}
	params := map[string]string{"productID": "9"}

	rec, _ := serve(t, CartSetItem(svc, testLogger()), newRequest(http.MethodPut, "/", `{"quantity":4}`, "u1", params))
	if rec.Code != http.StatusOK {
		t.Fatalf("set: expected 200, got %d", rec.Code)
	}
	rec, _ = serve(t, CartRemoveItem(svc, testLogger()), newRequest(http.MethodDelete, "/", "", "u1", params))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: expected 204, got %d", rec.Code)
	}
	rec, _ = serve(t, CartClear(svc, testLogger()), newRequest(http.MethodDelete, "/", "", "u1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", rec.Code)
	}

	want := []cartCall{
		{"set", "u1", 9, 4},
		{op: "remove", userID: "u1", productID: 9},
		{op: "clear", userID: "u1"},
	}
	if len(svc.calls) != len(want) {
		t.Fatalf("unexpected calls %+v", svc.calls)
	}
	for i := range want {
		if svc.calls[i] != want[i] {
			t.Fatalf("call %d: expected %+v, got %+v", i, want[i], svc.calls[i])
		}
	}
}

func TestCartRemoveMissingLine(t *testing.T) {
	svc := &stubCart{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")}
	rec, _ := serve(t, CartRemoveItem(svc, testLogger()), newRequest(http.MethodDelete, "/", "", "u1", map[string]string{"productID": "9"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

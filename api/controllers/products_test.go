package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ziggy12122/STK-Bot-sub000/internal/catalog"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/pagination"
)

type stubCatalog struct {
	created  *catalog.CreateProductInput
	updated  *catalog.UpdateProductInput
	stock    *int
	category string
	page     pagination.Params
	filter   *catalog.ListFilter
	product  *catalog.ProductDTO
	err      error
}

func (s *stubCatalog) AddProduct(_ context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	s.created = &input
	return s.product, s.err
}

func (s *stubCatalog) GetProduct(_ context.Context, id uint64) (*catalog.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.ProductDTO{ID: id, Name: "Widget"}, nil
}

func (s *stubCatalog) ListProducts(_ context.Context, filter catalog.ListFilter) (*catalog.ProductList, error) {
	s.filter = &filter
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.ProductList{Products: []catalog.ProductDTO{}}, nil
}

func (s *stubCatalog) ListAvailable(_ context.Context, category string, params pagination.Params) (*catalog.ProductList, error) {
	s.category, s.page = category, params
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.ProductList{Products: []catalog.ProductDTO{{ID: 1, Name: "Widget", Available: true}}}, nil
}

func (s *stubCatalog) SetStock(_ context.Context, id uint64, stock int) (*catalog.ProductDTO, error) {
	s.stock = &stock
	return &catalog.ProductDTO{ID: id, Stock: stock}, s.err
}

func (s *stubCatalog) UpdateFields(_ context.Context, id uint64, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	s.updated = &input
	return &catalog.ProductDTO{ID: id}, s.err
}

func (s *stubCatalog) Deactivate(_ context.Context, id uint64) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: id, IsActive: false}, s.err
}

func (s *stubCatalog) ListCategories(context.Context) ([]string, error) {
	return []string{"games", "roles"}, s.err
}

func TestProductListPassesCategory(t *testing.T) {
	svc := &stubCatalog{}
	rec, env := serve(t, ProductList(svc, testLogger()), newRequest(http.MethodGet, "/api/v1/products?category=%20games%20", "", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.category != "games" {
		t.Fatalf("expected trimmed category, got %q", svc.category)
	}
	var list catalog.ProductList
	if err := json.Unmarshal(env.Data, &list); err != nil || len(list.Products) != 1 {
		t.Fatalf("unexpected payload %s (%v)", env.Data, err)
	}
	if svc.page.Limit != pagination.DefaultLimit {
		t.Fatalf("expected default page size, got %d", svc.page.Limit)
	}
}

func TestProductListPaging(t *testing.T) {
	svc := &stubCatalog{}
	rec, _ := serve(t, ProductList(svc, testLogger()), newRequest(http.MethodGet, "/?limit=10&cursor=abc", "", "", nil))
	if rec.Code != http.StatusOK || svc.page.Limit != 10 || svc.page.Cursor != "abc" {
		t.Fatalf("expected page forwarded, got %d %+v", rec.Code, svc.page)
	}

	rec, env := serve(t, ProductList(svc, testLogger()), newRequest(http.MethodGet, "/?limit=0", "", "", nil))
	if rec.Code != http.StatusBadRequest || env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected limit below range rejected, got %d", rec.Code)
	}
}

func TestProductDetail(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		rec, env := serve(t, ProductDetail(&stubCatalog{}, testLogger()), newRequest(http.MethodGet, "/", "", "", map[string]string{"productID": "abc"}))
		if rec.Code != http.StatusBadRequest || env.Error.Code != string(pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error, got %d %s", rec.Code, env.Error.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubCatalog{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
		rec, _ := serve(t, ProductDetail(svc, testLogger()), newRequest(http.MethodGet, "/", "", "", map[string]string{"productID": "7"}))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("found", func(t *testing.T) {
		rec, env := serve(t, ProductDetail(&stubCatalog{}, testLogger()), newRequest(http.MethodGet, "/", "", "", map[string]string{"productID": "7"}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var product catalog.ProductDTO
		if err := json.Unmarshal(env.Data, &product); err != nil || product.ID != 7 {
			t.Fatalf("unexpected product %s", env.Data)
		}
	})
}

func TestProductControllersRequireService(t *testing.T) {
	rec, env := serve(t, ProductList(nil, testLogger()), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusInternalServerError || env.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %d %s", rec.Code, env.Error.Code)
	}
}

func TestAdminCreateProduct(t *testing.T) {
	svc := &stubCatalog{product: &catalog.ProductDTO{ID: 1, Name: "Widget"}}
	body := `{"name":"Widget","price":"9.99","stock":3,"category":"games"}`
	rec, _ := serve(t, AdminCreateProduct(svc, testLogger()), newRequest(http.MethodPost, "/", body, "", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil || !svc.created.Price.Equal(decimal.RequireFromString("9.99")) || svc.created.Stock != 3 {
		t.Fatalf("unexpected input %+v", svc.created)
	}
}

func TestAdminCreateProductRejectsBadPayload(t *testing.T) {
	cases := map[string]string{
		"missing name":  `{"price":"1","stock":1}`,
		"negative":      `{"name":"x","price":"1","stock":-1}`,
		"unknown field": `{"name":"x","price":"1","stock":1,"color":"red"}`,
		"bad image url": `{"name":"x","price":"1","stock":1,"image_url":"not a url"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCatalog{}
			rec, env := serve(t, AdminCreateProduct(svc, testLogger()), newRequest(http.MethodPost, "/", body, "", nil))
			if rec.Code != http.StatusBadRequest || env.Error.Code != string(pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %d %s", rec.Code, env.Error.Code)
			}
			if svc.created != nil {
				t.Fatalf("service should not be called")
			}
		})
	}
}

func TestAdminUpdateProductPartial(t *testing.T) {
	svc := &stubCatalog{}
	rec, _ := serve(t, AdminUpdateProduct(svc, testLogger()), newRequest(http.MethodPatch, "/", `{"is_active":false,"price":"2.50"}`, "", map[string]string{"productID": "4"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.updated == nil || svc.updated.IsActive == nil || *svc.updated.IsActive {
		t.Fatalf("expected is_active=false, got %+v", svc.updated)
	}
	if svc.updated.Name != nil || svc.updated.Stock != nil {
		t.Fatalf("absent fields must stay nil: %+v", svc.updated)
	}
}

func TestAdminSetStock(t *testing.T) {
	svc := &stubCatalog{}
	rec, _ := serve(t, AdminSetStock(svc, testLogger()), newRequest(http.MethodPut, "/", `{"stock":0}`, "", map[string]string{"productID": "4"}))
	if rec.Code != http.StatusOK || svc.stock == nil || *svc.stock != 0 {
		t.Fatalf("expected stock set to zero, got %d %v", rec.Code, svc.stock)
	}

	svc = &stubCatalog{}
	rec, _ = serve(t, AdminSetStock(svc, testLogger()), newRequest(http.MethodPut, "/", `{}`, "", map[string]string{"productID": "4"}))
	if rec.Code != http.StatusBadRequest || svc.stock != nil {
		t.Fatalf("expected missing stock to be rejected, got %d", rec.Code)
	}
}

func TestAdminProductListFilters(t *testing.T) {
	svc := &stubCatalog{}
	rec, _ := serve(t, AdminProductList(svc, testLogger()), newRequest(http.MethodGet, "/?active=true&in_stock=1&category=roles", "", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.filter == nil || !svc.filter.ActiveOnly || !svc.filter.InStockOnly || svc.filter.Category != "roles" {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}

	rec, _ = serve(t, AdminProductList(svc, testLogger()), newRequest(http.MethodGet, "/?active=maybe", "", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad bool, got %d", rec.Code)
	}
}

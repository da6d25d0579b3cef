package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taziri/grocery-kart/internal/domain/auth"
	"github.com/taziri/grocery-kart/internal/domain/checkout"
	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/store"
	"github.com/taziri/grocery-kart/internal/domain/unit"
	"github.com/taziri/grocery-kart/internal/repository"
)

// --- Mock implementations ---

type mockStoreRepo struct {
	stores map[string]*store.Store
	rate   decimal.Decimal
	noRate bool
}

func (m *mockStoreRepo) GetBySlug(_ context.Context, slug string) (*store.Store, error) {
	s, ok := m.stores[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *mockStoreRepo) DeliveryRate(_ context.Context, _ string) (decimal.Decimal, error) {
	if m.noRate {
		return decimal.Zero, store.ErrRateNotConfigured
	}
	return m.rate, nil
}

type mockProductRepo struct {
	byID map[string]product.Product
}

func (m *mockProductRepo) ListByStore(_ context.Context, _ string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, _ string, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, _ string, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	created []*checkout.Order
	byID    map[string]*checkout.Order
	summary *checkout.SalesSummary
}

func (m *mockOrderRepo) Create(_ context.Context, o *checkout.Order) error {
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*checkout.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, checkout.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, st checkout.Status) error {
	m.byID[id].Status = st
	return nil
}

func (m *mockOrderRepo) ListByStore(_ context.Context, storeID string) ([]checkout.Order, error) {
	var out []checkout.Order
	for _, o := range m.byID {
		if o.StoreID == storeID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) SalesSummary(_ context.Context, _ string) (*checkout.SalesSummary, error) {
	return m.summary, nil
}

type mockInventory struct{}

func (mockInventory) Decrement(_ context.Context, _, _ string, _ decimal.Decimal) error {
	return nil
}

type mockAPIKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	return info, nil
}

// --- Fixture ---

const (
	testPepper = "test-pepper"
	testAPIKey = "super-secret"
)

type fixture struct {
	handler *Handler
	stores  *mockStoreRepo
	orders  *mockOrderRepo
	mux     *http.ServeMux
}

func keyHash(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func newFixture() *fixture {
	stores := &mockStoreRepo{
		stores: map[string]*store.Store{
			"karachi-grocers": {ID: "s1", Slug: "karachi-grocers", Name: "Karachi Grocers", Active: true},
			"closed-shop":     {ID: "s2", Slug: "closed-shop", Name: "Closed", Active: false},
		},
		rate: decimal.NewFromInt(150),
	}
	products := &mockProductRepo{byID: map[string]product.Product{
		"atta": {
			ID: "atta", StoreID: "s1", Name: product.Name{EN: "Wheat Flour", UR: "آٹا"},
			Unit: unit.Weight, BasePrice: decimal.NewFromInt(200), Inventory: decimal.NewFromInt(50),
			Category: "staples",
		},
		"eggs": {
			ID: "eggs", StoreID: "s1", Name: product.Name{EN: "Farm Eggs"},
			Unit: unit.Dozen, BasePrice: decimal.NewFromInt(150), Inventory: decimal.NewFromInt(20),
			Category: "dairy",
		},
	}}
	orders := &mockOrderRepo{byID: map[string]*checkout.Order{}}
	apikeys := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{
		keyHash(testAPIKey): {ID: "k1", StoreID: "s1", KeyHash: keyHash(testAPIKey), Name: "test"},
	}}

	svc := checkout.NewService(orders, stores, mockInventory{}, zap.NewNop())
	h := NewHandler(
		Config{APIKeyPepper: []byte(testPepper)},
		stores, products, svc, orders, apikeys,
	)
	return &fixture{handler: h, stores: stores, orders: orders, mux: h.Routes()}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func adminHeaders() map[string]string {
	return map[string]string{"X-API-Key": testAPIKey}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/stores/karachi-grocers/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[[]productResponse](t, rec)
	assert.Len(t, out, 2)

	rec = f.do(t, http.MethodGet, "/api/stores/nowhere/products", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Inactive stores are invisible.
	rec = f.do(t, http.MethodGet, "/api/stores/closed-shop/products", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/stores/karachi-grocers/products/atta", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[productResponse](t, rec)
	assert.Equal(t, "Wheat Flour", out.Name.EN)
	assert.Equal(t, "kg", out.Unit)
	assert.True(t, out.InStock)

	rec = f.do(t, http.MethodGet, "/api/stores/karachi-grocers/products/ghee", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder_WeightPricing(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		Customer:       customerJSON{Name: "Ali", Phone: "0300-0000000"},
		DeliveryOption: "pickup",
		Items: []orderItemIn{
			{ProductID: "atta", Selection: selectionJSON{Kilograms: 1, Grams: 250}},
			{ProductID: "eggs", Selection: selectionJSON{Quantity: 2}},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decodeBody[orderResponse](t, rec)
	require.Len(t, out.Lines, 2)
	assert.Equal(t, "1.25kg", out.Lines[0].Quantity)
	assert.Equal(t, float64(250), out.Lines[0].Price)
	assert.Equal(t, "2 Dozens", out.Lines[1].Quantity)
	assert.Equal(t, float64(300), out.Lines[1].Price)
	assert.Equal(t, float64(550), out.Total)
	assert.Equal(t, "pending", out.Status)
}

// Repeated items for the same product merge into one priced line.
func TestPlaceOrder_MergesRepeatedItems(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		Customer:       customerJSON{Name: "Ali"},
		DeliveryOption: "pickup",
		Items: []orderItemIn{
			{ProductID: "atta", Selection: selectionJSON{Kilograms: 1}},
			{ProductID: "atta", Selection: selectionJSON{Grams: 1000}},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeBody[orderResponse](t, rec)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, "2kg", out.Lines[0].Quantity)
	assert.Equal(t, float64(400), out.Lines[0].Price)
}

func TestPlaceOrder_DeliveryAddsRate(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		Customer:       customerJSON{Name: "Sana", Address: "Street 4"},
		DeliveryOption: "delivery",
		Items:          []orderItemIn{{ProductID: "eggs", Selection: selectionJSON{Quantity: 1}}},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeBody[orderResponse](t, rec)
	assert.Equal(t, float64(150), out.DeliveryCharge)
	assert.Equal(t, float64(300), out.Total)
}

func TestPlaceOrder_DeliveryWithoutRate(t *testing.T) {
	f := newFixture()
	f.stores.noRate = true

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		DeliveryOption: "delivery",
		Items:          []orderItemIn{{ProductID: "eggs", Selection: selectionJSON{Quantity: 1}}},
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_InvalidSelection(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		DeliveryOption: "pickup",
		Items:          []orderItemIn{{ProductID: "atta", Selection: selectionJSON{}}},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		DeliveryOption: "pickup",
		Items:          []orderItemIn{{ProductID: "ghee", Selection: selectionJSON{Kilograms: 1}}},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/orders", orderRequest{
		DeliveryOption: "pickup",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOfflineOrder(t *testing.T) {
	f := newFixture()

	// Requires an API key.
	rec := f.do(t, http.MethodPost, "/api/stores/karachi-grocers/offline-orders", orderRequest{
		Items: []orderItemIn{{ProductID: "atta", Selection: selectionJSON{Grams: 500}}},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/stores/karachi-grocers/offline-orders", orderRequest{
		Customer: customerJSON{Name: "Walk-in"},
		Items:    []orderItemIn{{ProductID: "atta", Selection: selectionJSON{Grams: 500}}},
	}, adminHeaders())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decodeBody[orderResponse](t, rec)
	assert.Equal(t, "pickup", out.DeliveryOption)
	assert.Equal(t, float64(100), out.Total)
	assert.Contains(t, out.ReceiptText, "Karachi Grocers")
	assert.Contains(t, out.ReceiptText, "500g")
	assert.Contains(t, out.ReceiptText, "PKR 100")

	require.Len(t, f.orders.created, 1)
	assert.True(t, f.orders.created[0].Offline)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture()
	f.orders.byID["o1"] = &checkout.Order{
		ID: "o1", StoreID: "s1",
		Status: checkout.StatusPending, DeliveryOption: checkout.Pickup,
	}

	// No key.
	rec := f.do(t, http.MethodPatch, "/api/orders/o1/status",
		statusUpdateRequest{Status: "ready"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key.
	rec = f.do(t, http.MethodPatch, "/api/orders/o1/status",
		statusUpdateRequest{Status: "ready"}, map[string]string{"X-API-Key": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid transition.
	rec = f.do(t, http.MethodPatch, "/api/orders/o1/status",
		statusUpdateRequest{Status: "ready"}, adminHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody[orderResponse](t, rec).Status)

	// Pickup orders cannot ship.
	rec = f.do(t, http.MethodPatch, "/api/orders/o1/status",
		statusUpdateRequest{Status: "shipped"}, adminHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown status value.
	rec = f.do(t, http.MethodPatch, "/api/orders/o1/status",
		statusUpdateRequest{Status: "returned"}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/orders/missing/status",
		statusUpdateRequest{Status: "ready"}, adminHeaders())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_ScopedToKeyStore(t *testing.T) {
	f := newFixture()
	f.stores.stores["other-shop"] = &store.Store{ID: "s9", Slug: "other-shop", Name: "Other", Active: true}

	rec := f.do(t, http.MethodGet, "/api/stores/karachi-grocers/orders", nil, adminHeaders())
	assert.Equal(t, http.StatusOK, rec.Code)

	// The key belongs to s1; another store's dashboard is forbidden.
	rec = f.do(t, http.MethodGet, "/api/stores/other-shop/orders", nil, adminHeaders())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSalesSummary(t *testing.T) {
	f := newFixture()
	f.orders.summary = &checkout.SalesSummary{
		Orders: 12, Delivered: 7, Cancelled: 1,
		Revenue: decimal.NewFromInt(15430),
	}

	rec := f.do(t, http.MethodGet, "/api/stores/karachi-grocers/sales", nil, adminHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeBody[salesResponse](t, rec)
	assert.Equal(t, 12, out.Orders)
	assert.Equal(t, float64(15430), out.Revenue)
}

func TestGetOrder(t *testing.T) {
	f := newFixture()
	f.orders.byID["o1"] = &checkout.Order{
		ID: "o1", StoreID: "s1", Status: checkout.StatusPending,
		DeliveryOption: checkout.Pickup, Total: decimal.NewFromInt(400),
	}

	rec := f.do(t, http.MethodGet, "/api/orders/o1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(400), decodeBody[orderResponse](t, rec).Total)

	rec = f.do(t, http.MethodGet, "/api/orders/o2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

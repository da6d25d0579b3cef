// Package api exposes the storefront and store-admin HTTP surface. Handlers
// stay thin: they decode requests, call the domain, and map domain errors to
// status codes. No handler reimplements unit conversion or pricing.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/taziri/grocery-kart/internal/domain/auth"
	"github.com/taziri/grocery-kart/internal/domain/checkout"
	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/store"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
	// APIKeyPepper is the HMAC key for hashing admin API keys.
	APIKeyPepper []byte
}

// Handler serves the public storefront and the api-key protected admin
// routes, delegating business logic to the domain services.
type Handler struct {
	stores   store.Repository
	products product.Repository
	checkout *checkout.Service
	orders   checkout.Repository
	apikeys  auth.Repository

	imageBaseURL string
	pepper       []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	stores store.Repository,
	products product.Repository,
	checkoutSvc *checkout.Service,
	orders checkout.Repository,
	apikeys auth.Repository,
) *Handler {
	return &Handler{
		stores:       stores,
		products:     products,
		checkout:     checkoutSvc,
		orders:       orders,
		apikeys:      apikeys,
		imageBaseURL: cfg.ImageBaseURL,
		pepper:       cfg.APIKeyPepper,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Public storefront.
	mux.HandleFunc("GET /api/stores/{slug}/products", h.ListProducts)
	mux.HandleFunc("GET /api/stores/{slug}/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/stores/{slug}/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)

	// Store admin.
	mux.Handle("POST /api/stores/{slug}/offline-orders", h.requireAPIKey(http.HandlerFunc(h.PlaceOfflineOrder)))
	mux.Handle("PATCH /api/orders/{id}/status", h.requireAPIKey(http.HandlerFunc(h.UpdateOrderStatus)))
	mux.Handle("GET /api/stores/{slug}/orders", h.requireAPIKey(http.HandlerFunc(h.ListOrders)))
	mux.Handle("GET /api/stores/{slug}/sales", h.requireAPIKey(http.HandlerFunc(h.SalesSummary)))

	return mux
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// internalError logs the cause and responds 500 without leaking details.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

// resolveStore loads the active store for the request's slug path segment.
func (h *Handler) resolveStore(ctx context.Context, w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	slug := r.PathValue("slug")
	s, err := h.stores.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "store not found")
			return nil, false
		}
		internalError(w, r, err)
		return nil, false
	}
	if !s.Active {
		writeError(w, r, http.StatusNotFound, "store not found")
		return nil, false
	}
	return s, true
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/taziri/grocery-kart/internal/domain/cart"
	"github.com/taziri/grocery-kart/internal/domain/checkout"
	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/unit"
	"github.com/taziri/grocery-kart/internal/receipt"
)

type orderRequest struct {
	Customer       customerJSON  `json:"customer"`
	DeliveryOption string        `json:"deliveryOption"`
	PaymentMethod  string        `json:"paymentMethod"`
	Items          []orderItemIn `json:"items"`
}

type customerJSON struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type orderItemIn struct {
	ProductID string        `json:"productId"`
	Selection selectionJSON `json:"selection"`
}

// selectionJSON carries the customer's raw quantity entry. Which fields are
// meaningful depends on the product's unit kind.
type selectionJSON struct {
	Kilograms   int64 `json:"kilograms,omitempty"`
	Grams       int64 `json:"grams,omitempty"`
	Liters      int64 `json:"liters,omitempty"`
	Milliliters int64 `json:"milliliters,omitempty"`
	Quantity    int64 `json:"quantity,omitempty"`
}

// toSelection phrases the raw entry in the product's unit kind.
func (s selectionJSON) toSelection(kind unit.Kind) unit.Selection {
	switch kind {
	case unit.Weight:
		return unit.KilogramsGrams(s.Kilograms, s.Grams)
	case unit.Volume:
		return unit.LitersMilliliters(s.Liters, s.Milliliters)
	case unit.Dozen:
		return unit.Dozens(s.Quantity)
	default:
		return unit.Pieces(s.Quantity)
	}
}

type orderLineOut struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  string  `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	Lines          []orderLineOut `json:"lines"`
	DeliveryOption string         `json:"deliveryOption"`
	DeliveryCharge float64        `json:"deliveryCharge"`
	Total          float64        `json:"total"`
	CreatedAt      time.Time      `json:"createdAt"`
	Warnings       []string       `json:"warnings,omitempty"`
	ReceiptText    string         `json:"receiptText,omitempty"`
}

// PlaceOrder prices the submitted items through the cart engine and submits
// the order. Prices always come from the catalog, never from the client.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	h.placeOrder(w, r, false)
}

// PlaceOfflineOrder records an in-person sale: pickup, paid in cash, and
// the response carries the printable receipt.
func (h *Handler) PlaceOfflineOrder(w http.ResponseWriter, r *http.Request) {
	h.placeOrder(w, r, true)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, offline bool) {
	s, ok := h.resolveStore(r.Context(), w, r)
	if !ok {
		return
	}
	if offline && !h.authorizedForStore(w, r, s.ID) {
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items required")
		return
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	fetched, err := h.products.GetByIDs(r.Context(), s.ID, ids)
	if err != nil {
		internalError(w, r, errors.Wrap(err, "fetch products"))
		return
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Price every item through the aggregator; repeated products merge.
	c := cart.New()
	for _, item := range req.Items {
		p, found := byID[item.ProductID]
		if !found {
			writeError(w, r, http.StatusUnprocessableEntity, "product "+item.ProductID+" not found")
			return
		}
		if _, err := c.Add(p, item.Selection.toSelection(p.Unit)); err != nil {
			var selErr *unit.InvalidSelectionError
			if errors.As(err, &selErr) {
				writeError(w, r, http.StatusUnprocessableEntity,
					"product "+item.ProductID+": "+selErr.Error())
				return
			}
			internalError(w, r, err)
			return
		}
	}

	checkoutReq := checkout.Request{
		StoreID:        s.ID,
		Customer:       checkout.Customer(req.Customer),
		DeliveryOption: checkout.DeliveryOption(req.DeliveryOption),
		PaymentMethod:  checkout.PaymentMethod(req.PaymentMethod),
		Offline:        offline,
	}
	if offline {
		checkoutReq.DeliveryOption = checkout.Pickup
		if checkoutReq.PaymentMethod == "" {
			checkoutReq.PaymentMethod = checkout.Cash
		}
	}
	if checkoutReq.DeliveryOption == "" {
		checkoutReq.DeliveryOption = checkout.Pickup
	}
	if checkoutReq.PaymentMethod == "" {
		checkoutReq.PaymentMethod = checkout.CashOnDelivery
	}

	result, err := h.checkout.Submit(r.Context(), c, checkoutReq)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrDeliveryRateUnavailable):
			writeError(w, r, http.StatusConflict, "delivery is not available for this store")
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, r, http.StatusBadRequest, "items required")
		default:
			internalError(w, r, errors.Wrap(err, "submit order"))
		}
		return
	}

	resp := toOrderResponse(result.Order)
	for _, warn := range result.Warnings {
		resp.Warnings = append(resp.Warnings, "inventory not adjusted for "+warn.ProductID)
	}
	if offline {
		resp.ReceiptText = receipt.FromOrder(result.Order, s.Name).Text()
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

// GetOrder returns an order snapshot by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, errors.Wrap(err, "get order"))
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus applies an admin lifecycle transition.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	next := checkout.Status(req.Status)
	if !next.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	o, err := h.checkout.UpdateStatus(r.Context(), r.PathValue("id"), next)
	if err != nil {
		var invalid *checkout.InvalidTransitionError
		switch {
		case errors.Is(err, checkout.ErrOrderNotFound):
			writeError(w, r, http.StatusNotFound, "order not found")
		case errors.As(err, &invalid):
			writeError(w, r, http.StatusConflict, invalid.Error())
		default:
			internalError(w, r, errors.Wrap(err, "update status"))
		}
		return
	}

	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns the store's orders for the admin dashboard.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolveStore(r.Context(), w, r)
	if !ok {
		return
	}
	if !h.authorizedForStore(w, r, s.ID) {
		return
	}

	orders, err := h.orders.ListByStore(r.Context(), s.ID)
	if err != nil {
		internalError(w, r, errors.Wrap(err, "list orders"))
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, r, http.StatusOK, out)
}

type salesResponse struct {
	Orders    int     `json:"orders"`
	Delivered int     `json:"delivered"`
	Cancelled int     `json:"cancelled"`
	Revenue   float64 `json:"revenue"`
}

// SalesSummary reports the store's revenue from stored order totals.
func (h *Handler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolveStore(r.Context(), w, r)
	if !ok {
		return
	}
	if !h.authorizedForStore(w, r, s.ID) {
		return
	}

	summary, err := h.orders.SalesSummary(r.Context(), s.ID)
	if err != nil {
		internalError(w, r, errors.Wrap(err, "sales summary"))
		return
	}

	writeJSON(w, r, http.StatusOK, salesResponse{
		Orders:    summary.Orders,
		Delivered: summary.Delivered,
		Cancelled: summary.Cancelled,
		Revenue:   summary.Revenue.InexactFloat64(),
	})
}

func toOrderResponse(o *checkout.Order) orderResponse {
	lines := make([]orderLineOut, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineOut{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Display,
			Price:     l.Price.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:             o.ID,
		Status:         string(o.Status),
		Lines:          lines,
		DeliveryOption: string(o.DeliveryOption),
		DeliveryCharge: o.DeliveryCharge.InexactFloat64(),
		Total:          o.Total.InexactFloat64(),
		CreatedAt:      o.CreatedAt,
	}
}

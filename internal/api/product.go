package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/taziri/grocery-kart/internal/domain/product"
)

type productResponse struct {
	ID       string      `json:"id"`
	Name     productName `json:"name"`
	Unit     string      `json:"unit"`
	Price    float64     `json:"price"`
	Category string      `json:"category"`
	Image    string      `json:"image,omitempty"`
	InStock  bool        `json:"inStock"`
}

type productName struct {
	EN string `json:"en"`
	UR string `json:"ur,omitempty"`
}

// ListProducts returns the store's full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolveStore(r.Context(), w, r)
	if !ok {
		return
	}

	products, err := h.products.ListByStore(r.Context(), s.ID)
	if err != nil {
		internalError(w, r, errors.Wrap(err, "list products"))
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolveStore(r.Context(), w, r)
	if !ok {
		return
	}

	p, err := h.products.GetByID(r.Context(), s.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	writeJSON(w, r, http.StatusOK, h.toProductResponse(*p))
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	image := p.Image
	if image != "" && h.imageBaseURL != "" {
		image = h.imageBaseURL + image
	}
	return productResponse{
		ID:       p.ID,
		Name:     productName{EN: p.Name.EN, UR: p.Name.UR},
		Unit:     string(p.Unit),
		Price:    p.BasePrice.InexactFloat64(),
		Category: p.Category,
		Image:    image,
		InStock:  p.InStock(),
	}
}

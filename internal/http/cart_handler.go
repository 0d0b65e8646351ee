package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	Load(ctx context.Context, userID string) (*domain.Cart, *domain.Notice)
	AddItem(ctx context.Context, productID string, quantity int) (*domain.Cart, error)
	ChangeQuantity(ctx context.Context, productID string, delta int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, productID string) (*domain.Cart, error)
}

type BadgeService interface {
	Watch(ctx context.Context, userID string) int
}

type CartHandler struct {
	carts   CartService
	badge   BadgeService
	timeout time.Duration
}

func NewCartHandler(carts CartService, badge BadgeService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		badge:   badge,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ChangeQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartLineDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
	LineTotal string `json:"line_total"`
}

type CartResponseDTO struct {
	Items         []CartLineDTO  `json:"items"`
	Subtotal      string         `json:"subtotal"`
	Total         string         `json:"total"`
	TotalQuantity int            `json:"total_quantity"`
	Notice        *domain.Notice `json:"notice,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type BadgeResponseDTO struct {
	Count int `json:"count"`
}

func toCartResponse(c *domain.Cart, notice *domain.Notice) CartResponseDTO {
	resp := CartResponseDTO{
		Items:         make([]CartLineDTO, 0, len(c.Lines)),
		Subtotal:      c.FormattedSubtotal(),
		Total:         c.FormattedSubtotal(),
		TotalQuantity: c.TotalQuantity(),
		Notice:        notice,
	}
	for _, l := range c.Lines {
		resp.Items = append(resp.Items, CartLineDTO{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Image:     l.Product.PrimaryImage(),
			Price:     l.Product.Price.StringFixed(2),
			Quantity:  l.Quantity,
			Stock:     l.Product.Stock,
			LineTotal: l.Total().StringFixed(2),
		})
	}
	return resp
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// no user is an empty cart, not an error
	cart, notice := h.carts.Load(ctx, getUserIDFromContext(r.Context()))
	respondJSON(w, http.StatusOK, toCartResponse(cart, notice))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}

	cart, err := h.carts.AddItem(ctx, req.ProductID, req.Quantity)
	if err != nil {
		handleError(w, r, err, "Failed to add to cart")
		return
	}

	respondJSON(w, http.StatusCreated, toCartResponse(cart, domain.SuccessNotice("Added to cart!")))
}

// PATCH /api/v1/cart/items/{product_id}
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ChangeQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}

	cart, err := h.carts.ChangeQuantity(ctx, chi.URLParam(r, "product_id"), req.Delta)
	if err != nil {
		handleError(w, r, err, "Failed to update quantity")
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart, nil))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveItem(ctx, chi.URLParam(r, "product_id"))
	if err != nil && cart != nil {
		// the line stays; show the cart as it was
		status, _, notice := classifyError(r.Context(), err, "Failed to remove item from cart")
		resp := toCartResponse(cart, domain.ErrorNotice(notice))
		resp.Error = err.Error()
		respondJSON(w, status, resp)
		return
	}
	if err != nil {
		handleError(w, r, err, "Error removing item from cart")
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart, domain.InfoNotice("Item removed from cart")))
}

// GET /api/v1/cart/badge
func (h *CartHandler) Badge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, BadgeResponseDTO{Count: h.badge.Watch(ctx, getUserIDFromContext(r.Context()))})
}

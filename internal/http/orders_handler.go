package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

type OrdersLister interface {
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type OrdersHandler struct {
	orders  OrdersLister
	timeout time.Duration
}

func NewOrdersHandler(orders OrdersLister, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderResponseDTO struct {
	ID            string             `json:"id"`
	Products      []domain.OrderItem `json:"products"`
	Quantity      int                `json:"quantity"`
	TotalAmount   string             `json:"total_amount"`
	PaymentStatus string             `json:"payment_status"`
	CreatedAt     string             `json:"created_at"`
	FormattedDate string             `json:"formatted_date"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		handleError(w, r, domain.ErrNotAuthenticated, "")
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		// the orders page shows an empty table on failure
		logger.FromContext(r.Context()).Warn("failed to list orders", zap.Error(err))
		orders = nil
	}

	resp := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dto := OrderResponseDTO{
			ID:            o.ID,
			Products:      o.Products,
			Quantity:      o.ItemCount(),
			TotalAmount:   o.TotalAmount.StringFixed(2),
			PaymentStatus: o.PaymentStatus,
		}
		if !o.CreatedAt.IsZero() {
			dto.CreatedAt = o.CreatedAt.Format(time.RFC3339)
			dto.FormattedDate = o.CreatedAt.Format("2 Jan 2006")
		}
		resp = append(resp, dto)
	}

	respondJSON(w, http.StatusOK, resp)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Notice    *domain.Notice `json:"notice,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, notice *domain.Notice) {
	respondJSON(w, status, ErrorResponse{
		Error:  message,
		Code:   code,
		Notice: notice,
	})
}

// handleError maps an operation error to a status code. notice is the text
// the shopper sees; it is replaced by a more specific one where the error
// carries it.
func handleError(w http.ResponseWriter, r *http.Request, err error, notice string) {
	httpStatus, code, notice := classifyError(r.Context(), err, notice)
	respondJSON(w, httpStatus, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		Notice:    domain.ErrorNotice(notice),
		RequestID: getRequestID(r.Context()),
	})
}

func classifyError(ctx context.Context, err error, notice string) (int, string, string) {
	var (
		httpStatus int
		code       string
	)

	var providerErr *checkout.ProviderError
	var statusErr *backend.StatusError

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
		notice = "User not logged in"
	case errors.Is(err, domain.ErrCheckoutInFlight):
		httpStatus = http.StatusConflict
		code = "checkout_in_flight"
		notice = "Checkout is already in progress."
	case errors.As(err, &providerErr):
		httpStatus = http.StatusBadGateway
		code = "provider_failure"
		notice = string(providerErr.Provider) + " checkout failed"
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
		notice = "Your cart is empty."
	case errors.Is(err, cart.ErrInvalidProduct):
		httpStatus = http.StatusBadRequest
		code = "invalid_product_id"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	case errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500:
		httpStatus = statusErr.Status
		code = "backend_rejected"
		if statusErr.Message != "" {
			notice = statusErr.Message
		}
	case errors.Is(err, domain.ErrNetworkFailure):
		httpStatus = http.StatusBadGateway
		code = "backend_unavailable"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	log := logger.FromContext(ctx)
	if httpStatus >= 500 {
		log.Error("request failed", zap.String("code", code), zap.Error(err))
	} else {
		log.Info("request rejected", zap.String("code", code), zap.Error(err))
	}
	return httpStatus, code, notice
}

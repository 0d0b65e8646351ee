package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var checkoutPaths = map[domain.Provider]string{
	domain.ProviderStripe:  "/transactions/create-checkout-session",
	domain.ProviderSafepay: "/transactions/safepay-checkout-session",
}

type lineItemBody struct {
	Name     string  `json:"name"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type checkoutSessionBody struct {
	UserID              string                  `json:"userId"`
	Items               []lineItemBody          `json:"items"`
	SuccessURL          string                  `json:"success_url"`
	CancelURL           string                  `json:"cancel_url"`
	Metadata            domain.CheckoutMetadata `json:"metadata"`
	DeviceFingerprintID string                  `json:"deviceFingerprintId,omitempty"`
}

type verifyPaymentBody struct {
	Token string `json:"token"`
}

// CheckoutPath returns the backend endpoint for the provider.
func CheckoutPath(p domain.Provider) (string, error) {
	path, ok := checkoutPaths[p]
	if !ok {
		return "", fmt.Errorf("unknown payment provider %q", p)
	}
	return path, nil
}

// CreateCheckoutSession opens a provider checkout session. A non-2xx answer is
// returned as *StatusError so callers can tell a refusing provider from an
// unreachable backend.
func (c *Client) CreateCheckoutSession(ctx context.Context, provider domain.Provider, req *domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	path, err := CheckoutPath(provider)
	if err != nil {
		return nil, err
	}

	body := checkoutSessionBody{
		UserID:     req.UserID,
		Items:      make([]lineItemBody, len(req.Items)),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   req.Metadata,
	}
	for i, item := range req.Items {
		body.Items[i] = lineItemBody{
			Name:     item.Name,
			Image:    item.Image,
			Price:    item.Price.InexactFloat64(),
			Quantity: item.Quantity,
		}
	}
	if provider == domain.ProviderSafepay {
		body.DeviceFingerprintID = req.DeviceFingerprintID
	}

	data, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var session domain.CheckoutSession
	if err := decode(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// VerifyPayment posts the return token to POST /transactions/verify-payment.
// An answer with "success": false is a verification failure.
func (c *Client) VerifyPayment(ctx context.Context, token string) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodPost, "/transactions/verify-payment", verifyPaymentBody{Token: token})
	if err != nil {
		return nil, err
	}

	var result struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := decode(data, &result); err != nil {
		return nil, err
	}
	if result.Success != nil && !*result.Success {
		if result.Message != "" {
			return data, fmt.Errorf("%w: %s", domain.ErrVerificationFailure, result.Message)
		}
		return data, domain.ErrVerificationFailure
	}
	return data, nil
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CheckoutService interface {
	Submit(ctx context.Context, sub checkout.Submission) (*checkout.Result, error)
	PendingStepUp(userID string) (string, bool)
	CancelStepUp(userID string) bool
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
	}
}

type InitiateCheckoutRequestDTO struct {
	Provider string `json:"provider"`
}

type StepUpResponseDTO struct {
	Action    domain.CheckoutAction `json:"action"`
	StepUpURL string                `json:"step_up_url,omitempty"`
	Notice    *domain.Notice        `json:"notice,omitempty"`
}

// POST /api/v1/checkout
//
// A redirect answer becomes a 303 to the provider page. A step-up answer is
// returned as JSON for the page to show in an overlay frame.
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req InitiateCheckoutRequestDTO
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
			return
		}
	} else {
		req.Provider = r.FormValue("provider")
	}

	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_provider", err.Error(), domain.ErrorNotice("Unknown payment method."))
		return
	}

	res, err := h.checkout.Submit(ctx, checkout.Submission{
		Provider:    provider,
		Fingerprint: checkout.HeaderFingerprint(r),
	})
	if err != nil {
		handleError(w, r, err, "Something went wrong during checkout.")
		return
	}

	if res.Action == domain.CheckoutActionStepUp {
		respondJSON(w, http.StatusOK, StepUpResponseDTO{
			Action:    res.Action,
			StepUpURL: res.URL,
		})
		return
	}
	http.Redirect(w, r, res.URL, http.StatusSeeOther)
}

// GET /api/v1/checkout/step-up
func (h *CheckoutHandler) GetStepUp(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		handleError(w, r, domain.ErrNotAuthenticated, "")
		return
	}

	stepUpURL, ok := h.checkout.PendingStepUp(userID)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "no pending step-up", nil)
		return
	}
	respondJSON(w, http.StatusOK, StepUpResponseDTO{Action: domain.CheckoutActionStepUp, StepUpURL: stepUpURL})
}

// DELETE /api/v1/checkout/step-up closes the challenge and leaves the cart as it was.
func (h *CheckoutHandler) CancelStepUp(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		handleError(w, r, domain.ErrNotAuthenticated, "")
		return
	}

	h.checkout.CancelStepUp(userID)
	w.WriteHeader(http.StatusNoContent)
}

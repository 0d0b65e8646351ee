package http

import (
	"context"
	"html/template"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

const TrackerParam = "tracker"

type PaymentReturns interface {
	Handle(ctx context.Context, token string) *domain.PaymentConfirmation
}

// StepUpCloser drops a user's pending step-up challenge.
type StepUpCloser interface {
	CancelStepUp(userID string) bool
}

type PaymentHandler struct {
	returns PaymentReturns
	stepUps StepUpCloser
	shopURL string
}

func NewPaymentHandler(returns PaymentReturns, stepUps StepUpCloser, shopURL string) *PaymentHandler {
	return &PaymentHandler{returns: returns, stepUps: stepUps, shopURL: shopURL}
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payment Success</title></head>
<body data-state="{{.State}}">
<h1>Payment Success</h1>
{{- if eq .State "failed"}}
<p>We could not confirm your payment yet. Your order status will update once the payment provider confirms it.</p>
{{- else if eq .State "verified"}}
<p>Your payment has been confirmed.</p>
{{- end}}
<a href="{{.ShopURL}}/orders">View my orders</a>
</body>
</html>
`))

var cancelPage = template.Must(template.New("cancel").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Transaction Cancelled</title></head>
<body>
<h1>Transaction Cancelled</h1>
<a href="{{.ShopURL}}/products">Back to Shop</a>
</body>
</html>
`))

type pageData struct {
	State   domain.VerificationState
	ShopURL string
}

// GET /success?tracker=<token>
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.closeStepUp(r)
	confirmation := h.returns.Handle(r.Context(), r.URL.Query().Get(TrackerParam))
	logger.FromContext(r.Context()).Info("payment return", zap.String("state", confirmation.State.String()))

	render(w, r, successPage, pageData{State: confirmation.State, ShopURL: h.shopURL})
}

// GET /cancel
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.closeStepUp(r)
	render(w, r, cancelPage, pageData{ShopURL: h.shopURL})
}

// closeStepUp ends the challenge the shopper just returned from.
func (h *PaymentHandler) closeStepUp(r *http.Request) {
	if userID := getUserIDFromContext(r.Context()); userID != "" {
		h.stepUps.CancelStepUp(userID)
	}
}

func render(w http.ResponseWriter, r *http.Request, t *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := t.Execute(w, data); err != nil {
		logger.FromContext(r.Context()).Warn("failed to render page", zap.Error(err))
	}
}

// Package payment completes the loop after a shopper comes back from the
// payment provider: the return token is verified with the backend exactly
// once and the outcome is kept in a ledger.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

type Verifier interface {
	VerifyPayment(ctx context.Context, token string) (json.RawMessage, error)
}

type ReturnHandler struct {
	verifier Verifier
	ledger   Ledger
	now      func() time.Time
}

func NewReturnHandler(verifier Verifier, ledger Ledger) *ReturnHandler {
	return &ReturnHandler{verifier: verifier, ledger: ledger, now: time.Now}
}

// Handle verifies token and returns its confirmation. An empty token stays
// idle and nothing is sent. A token already in the ledger returns the stored
// outcome without another verification call.
func (h *ReturnHandler) Handle(ctx context.Context, token string) *domain.PaymentConfirmation {
	token = strings.TrimSpace(token)
	if token == "" {
		return &domain.PaymentConfirmation{State: domain.VerificationIdle}
	}
	log := logger.FromContext(ctx)

	pending, err := h.ledger.Begin(ctx, token)
	if errors.Is(err, ErrAlreadyConsumed) {
		stored, getErr := h.ledger.Get(ctx, token)
		if getErr != nil {
			log.Error("failed to read payment confirmation", zap.Error(getErr))
			return h.failed(token, "Payment verification could not be loaded.")
		}
		log.Info("payment token already consumed", zap.String("state", stored.State.String()))
		return stored
	}
	if err != nil {
		log.Error("failed to record payment token", zap.Error(err))
		return h.failed(token, "Payment verification could not be started.")
	}

	state := domain.VerificationVerified
	errText := ""
	result, err := h.verifier.VerifyPayment(ctx, token)
	if err != nil {
		state = domain.VerificationFailed
		errText = err.Error()
		log.Warn("payment verification failed", zap.Error(err))
	} else {
		log.Info("payment verified")
	}

	done, err := h.ledger.Complete(context.WithoutCancel(ctx), token, state, result, errText)
	if err != nil {
		log.Error("failed to store payment outcome", zap.Error(err))
		pending.State = state
		pending.Result = result
		pending.Error = errText
		pending.UpdatedAt = h.now().UTC()
		return pending
	}
	return done
}

func (h *ReturnHandler) failed(token, msg string) *domain.PaymentConfirmation {
	now := h.now().UTC()
	return &domain.PaymentConfirmation{
		Token:     token,
		State:     domain.VerificationFailed,
		Error:     msg,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Package checkout turns a user's cart into a payment provider checkout
// session and decides where the browser goes next.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// ProviderError is returned when the provider endpoint answered with neither
// a redirect nor a step-up url.
type ProviderError struct {
	Provider domain.Provider
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s checkout failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s checkout failed", e.Provider)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{domain.ErrProviderFailure, e.Err}
	}
	return []error{domain.ErrProviderFailure}
}

// SessionCreator opens checkout sessions at the backend.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, provider domain.Provider, req *domain.CheckoutRequest) (*domain.CheckoutSession, error)
}

// CartSnapshotter returns the user's cart as the storefront currently shows it.
type CartSnapshotter interface {
	Snapshot(ctx context.Context, userID string) (*domain.Cart, *domain.Notice)
}

type Options struct {
	SuccessURL string
	CancelURL  string
}

type Submission struct {
	Provider    domain.Provider
	Fingerprint FingerprintCollector
}

// Result tells the caller what to do with the browser.
type Result struct {
	Action domain.CheckoutAction
	URL    string
}

type Orchestrator struct {
	backend  SessionCreator
	carts    CartSnapshotter
	identity session.Identity
	opts     Options

	inFlight sync.Map // userID -> struct{}

	mu      sync.RWMutex
	stepUps map[string]string
}

func NewOrchestrator(creator SessionCreator, carts CartSnapshotter, identity session.Identity, opts Options) *Orchestrator {
	return &Orchestrator{
		backend:  creator,
		carts:    carts,
		identity: identity,
		opts:     opts,
		stepUps:  make(map[string]string),
	}
}

// Submit runs one checkout attempt for the current user. While an attempt
// for the same user is running, further submits fail with
// domain.ErrCheckoutInFlight and send nothing. The cart is never modified.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (*Result, error) {
	user := o.identity.CurrentUser(ctx)
	if user == nil {
		return nil, domain.ErrNotAuthenticated
	}
	if sub.Provider == "" {
		sub.Provider = domain.ProviderStripe
	}

	if _, busy := o.inFlight.LoadOrStore(user.ID, struct{}{}); busy {
		return nil, domain.ErrCheckoutInFlight
	}
	defer o.inFlight.Delete(user.ID)

	log := logger.FromContext(ctx).With(zap.String("provider", sub.Provider.String()))

	cart, notice := o.carts.Snapshot(ctx, user.ID)
	if notice != nil {
		return nil, fmt.Errorf("%w: cart unavailable", domain.ErrNetworkFailure)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	req, err := o.buildRequest(user.ID, cart)
	if err != nil {
		return nil, err
	}
	if sub.Provider == domain.ProviderSafepay && sub.Fingerprint != nil {
		if token, ok := sub.Fingerprint.Collect(); ok {
			req.DeviceFingerprintID = token
		} else {
			log.Debug("device fingerprint unavailable, continuing without it")
		}
	}

	resp, err := o.backend.CreateCheckoutSession(ctx, sub.Provider, req)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			log.Warn("provider refused checkout", zap.Error(err))
			return nil, &ProviderError{Provider: sub.Provider, Err: err}
		}
		log.Error("checkout request failed", zap.Error(err))
		return nil, err
	}

	switch {
	case resp.StepUpURL != "":
		o.mu.Lock()
		o.stepUps[user.ID] = resp.StepUpURL
		o.mu.Unlock()
		log.Info("checkout requires step-up")
		return &Result{Action: domain.CheckoutActionStepUp, URL: resp.StepUpURL}, nil
	case resp.URL != "":
		o.clearStepUp(user.ID)
		log.Info("checkout session created")
		return &Result{Action: domain.CheckoutActionRedirect, URL: resp.URL}, nil
	default:
		log.Warn("checkout response had no url")
		return nil, &ProviderError{Provider: sub.Provider}
	}
}

// InFlight reports whether a checkout for userID is running.
func (o *Orchestrator) InFlight(userID string) bool {
	_, ok := o.inFlight.Load(userID)
	return ok
}

// PendingStepUp returns the step-up url the user still has open.
func (o *Orchestrator) PendingStepUp(userID string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	u, ok := o.stepUps[userID]
	return u, ok
}

// CancelStepUp closes the user's step-up challenge. The cart is left as it was.
func (o *Orchestrator) CancelStepUp(userID string) bool {
	return o.clearStepUp(userID)
}

func (o *Orchestrator) clearStepUp(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.stepUps[userID]
	delete(o.stepUps, userID)
	return ok
}

func (o *Orchestrator) buildRequest(userID string, cart *domain.Cart) (*domain.CheckoutRequest, error) {
	products, err := json.Marshal(cart.Lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}

	items := make([]domain.LineItem, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		items = append(items, domain.LineItem{
			Name:     l.Product.Name,
			Image:    l.Product.PrimaryImage(),
			Price:    l.Product.Price,
			Quantity: l.Quantity,
		})
	}

	return &domain.CheckoutRequest{
		UserID:     userID,
		Items:      items,
		SuccessURL: o.opts.SuccessURL,
		CancelURL:  o.opts.CancelURL,
		Metadata: domain.CheckoutMetadata{
			UserID:   userID,
			Products: string(products),
		},
	}, nil
}

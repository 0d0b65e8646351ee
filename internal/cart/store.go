// Package cart keeps the storefront's mirror of each user's remote cart.
package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidProduct = errors.New("product id is required")

// Backend is the remote cart resource.
type Backend interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, userID, productID string) error
}

type Store struct {
	backend  Backend
	mirror   Mirror
	bus      *events.Bus
	identity session.Identity
	sfg      singleflight.Group // collapses concurrent loads per user

	// serializes read-modify-write on the mirror
	mu sync.Mutex

	unsubscribe func()
}

func NewStore(backend Backend, mirror Mirror, bus *events.Bus, identity session.Identity) *Store {
	s := &Store{
		backend:  backend,
		mirror:   mirror,
		bus:      bus,
		identity: identity,
	}
	s.unsubscribe = bus.Subscribe(s.onEvent)
	return s
}

func (s *Store) Close() {
	s.unsubscribe()
}

func (s *Store) onEvent(ctx context.Context, e events.Event) {
	if e.Kind != events.KindIdentityCleared {
		return
	}
	if err := s.mirror.Delete(ctx, e.UserID); err != nil {
		logger.FromContext(ctx).Warn("failed to drop cart mirror", zap.String("user_id", e.UserID), zap.Error(err))
	}
}

// Load fetches the remote cart and replaces the mirror. Without a user it
// returns an empty cart and makes no call. A failed fetch also yields an
// empty cart, together with an error notice.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Cart, *domain.Notice) {
	if userID == "" {
		return domain.NewEmptyCart(""), nil
	}

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		// shared by every waiting caller, so the first caller leaving must not
		// cancel it; the backend client bounds it with its own deadline
		fetchCtx := context.WithoutCancel(ctx)
		cart, err := s.backend.GetCart(fetchCtx, userID)
		if err != nil {
			return nil, err
		}
		if errSet := s.mirror.Set(fetchCtx, userID, cart); errSet != nil {
			logger.FromContext(ctx).Warn("cart mirror set error", zap.Error(errSet))
		}
		return cart, nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("error fetching cart", zap.String("user_id", userID), zap.Error(err))
		if errDel := s.mirror.Delete(ctx, userID); errDel != nil {
			logger.FromContext(ctx).Warn("cart mirror delete error", zap.Error(errDel))
		}
		return domain.NewEmptyCart(userID), domain.ErrorNotice("Failed to load cart.")
	}

	return v.(*domain.Cart).Clone(), nil
}

// Snapshot returns the mirrored cart, loading it when there is none.
func (s *Store) Snapshot(ctx context.Context, userID string) (*domain.Cart, *domain.Notice) {
	if userID == "" {
		return domain.NewEmptyCart(""), nil
	}

	cart, err := s.mirror.Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrMirrorMiss) {
		logger.FromContext(ctx).Warn("cart mirror get error", zap.Error(err))
	}
	return s.Load(ctx, userID)
}

// AddItem adds quantity units of productID to the current user's cart,
// refreshes the mirror and signals the change.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) (*domain.Cart, error) {
	user := s.identity.CurrentUser(ctx)
	if user == nil {
		return nil, domain.ErrNotAuthenticated
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity < 1 {
		quantity = 1
	}

	if err := s.backend.AddToCart(ctx, user.ID, productID, quantity); err != nil {
		return nil, err
	}

	cart, _ := s.Load(ctx, user.ID)
	s.bus.Publish(ctx, events.CartChanged(user.ID, "add"))
	return cart, nil
}

// ChangeQuantity adjusts a line on the mirror only, bounded to [1, stock].
// The remote cart is not updated. Without a user it returns an empty cart.
func (s *Store) ChangeQuantity(ctx context.Context, productID string, delta int) (*domain.Cart, error) {
	user := s.identity.CurrentUser(ctx)
	if user == nil {
		return domain.NewEmptyCart(""), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, notice := s.Snapshot(ctx, user.ID)
	if notice != nil {
		return cart, nil
	}
	if cart.ChangeQuantity(productID, delta) {
		if err := s.mirror.Set(ctx, user.ID, cart); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

// RemoveItem removes productID remotely and then from the mirror. On failure
// the line stays and the error is returned with the unchanged cart.
func (s *Store) RemoveItem(ctx context.Context, productID string) (*domain.Cart, error) {
	user := s.identity.CurrentUser(ctx)
	if user == nil {
		return nil, domain.ErrNotAuthenticated
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	if err := s.backend.RemoveFromCart(ctx, user.ID, productID); err != nil {
		cart, _ := s.Snapshot(ctx, user.ID)
		return cart, err
	}

	s.mu.Lock()
	cart, _ := s.Snapshot(ctx, user.ID)
	cart.Remove(productID)
	errSet := s.mirror.Set(ctx, user.ID, cart)
	s.mu.Unlock()
	if errSet != nil {
		logger.FromContext(ctx).Warn("cart mirror set error", zap.Error(errSet))
	}

	s.bus.Publish(ctx, events.CartChanged(user.ID, "remove"))
	return cart, nil
}

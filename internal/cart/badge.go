package cart

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

const DefaultBadgeInterval = 20 * time.Second

// idleIntervals is how many polling intervals a user may go unwatched before
// polling stops for them.
const idleIntervals = 3

type CartFetcher interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
}

type badgeEntry struct {
	count    int
	lastSeen time.Time
}

// Badge tracks the total cart quantity of watched users. A count is
// refreshed on every Watch, on every cart change signal for that user, and
// on a fixed polling interval in case a signal was missed. Users not watched
// for idleIntervals polling intervals are dropped.
type Badge struct {
	fetcher  CartFetcher
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]*badgeEntry

	unsubscribe func()
}

func NewBadge(fetcher CartFetcher, bus *events.Bus, interval time.Duration) *Badge {
	if interval <= 0 {
		interval = DefaultBadgeInterval
	}
	b := &Badge{
		fetcher:  fetcher,
		interval: interval,
		now:      time.Now,
		entries:  make(map[string]*badgeEntry),
	}
	b.unsubscribe = bus.Subscribe(b.onEvent)
	return b
}

func (b *Badge) Close() {
	b.unsubscribe()
}

func (b *Badge) onEvent(ctx context.Context, e events.Event) {
	switch e.Kind {
	case events.KindCartChanged:
		if b.watched(e.UserID) {
			b.Refresh(ctx, e.UserID)
		}
	case events.KindIdentityCleared:
		b.Forget(e.UserID)
	}
}

// Watch marks userID as seen, keeps it in the polling set and returns a
// freshly fetched count.
func (b *Badge) Watch(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}

	b.mu.Lock()
	if e, ok := b.entries[userID]; ok {
		e.lastSeen = b.now()
	} else {
		b.entries[userID] = &badgeEntry{lastSeen: b.now()}
	}
	b.mu.Unlock()

	return b.Refresh(ctx, userID)
}

func (b *Badge) Forget(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, userID)
}

func (b *Badge) Count(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[userID]; ok {
		return e.count
	}
	return 0
}

// Refresh refetches the cart. A failed fetch shows zero.
func (b *Badge) Refresh(ctx context.Context, userID string) int {
	count := 0
	cart, err := b.fetcher.GetCart(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("badge refresh failed", zap.String("user_id", userID), zap.Error(err))
	} else {
		count = cart.TotalQuantity()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// forgotten while the fetch was in flight
	e, ok := b.entries[userID]
	if !ok {
		return 0
	}
	e.count = count
	return count
}

// Run polls every watched user until ctx is cancelled.
func (b *Badge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.refreshAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Badge) refreshAll(ctx context.Context) {
	cutoff := b.now().Add(-idleIntervals * b.interval)

	b.mu.Lock()
	users := make([]string, 0, len(b.entries))
	for userID, e := range b.entries {
		if e.lastSeen.Before(cutoff) {
			delete(b.entries, userID)
			continue
		}
		users = append(users, userID)
	}
	b.mu.Unlock()

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		b.Refresh(ctx, userID)
	}
}

func (b *Badge) watched(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[userID]
	return ok
}

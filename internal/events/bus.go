// Package events carries the storefront's cart signals between components.
package events

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

type Kind string

const (
	KindCartChanged     Kind = "cart_changed"
	KindIdentityCleared Kind = "identity_cleared"
)

type Event struct {
	Kind   Kind   `json:"kind"`
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
	// Origin is the instance that produced the event; empty for local events
	// not yet stamped by a relay.
	Origin string `json:"origin,omitempty"`
}

func CartChanged(userID, reason string) Event {
	return Event{Kind: KindCartChanged, UserID: userID, Reason: reason}
}

func IdentityCleared(userID string) Event {
	return Event{Kind: KindIdentityCleared, UserID: userID}
}

type Handler func(ctx context.Context, e Event)

// Bus delivers events synchronously to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a func that removes it.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(ctx, s.fn, e)
	}
}

func deliver(ctx context.Context, fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("event subscriber panicked",
				zap.String("kind", string(e.Kind)),
				zap.Any("panic", r))
		}
	}()
	fn(ctx, e)
}

package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBadge(t *testing.T, interval time.Duration) (*Badge, *mockBackend, *events.Bus) {
	t.Helper()
	backend := newMockBackend()
	bus := events.NewBus()
	badge := NewBadge(backend, bus, interval)
	t.Cleanup(badge.Close)
	return badge, backend, bus
}

func TestBadge_DefaultInterval(t *testing.T) {
	badge, _, _ := setupBadge(t, 0)
	assert.Equal(t, DefaultBadgeInterval, badge.interval)
}

func TestBadge_EveryWatchRefetches(t *testing.T) {
	badge, backend, _ := setupBadge(t, time.Hour)
	backend.seed("u1", backend.line("p1", 2))

	assert.Equal(t, 2, badge.Watch(context.Background(), "u1"))

	// changed behind our back, no signal
	backend.seed("u1", backend.line("p1", 2), backend.line("p2", 5))
	assert.Equal(t, 7, badge.Watch(context.Background(), "u1"))

	get, _, _ := backend.calls()
	assert.Equal(t, 2, get)
}

func TestBadge_IdleUserDropped(t *testing.T) {
	badge, backend, _ := setupBadge(t, time.Minute)
	backend.seed("u1", backend.line("p1", 1))
	backend.seed("u2", backend.line("p2", 1))

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	badge.now = func() time.Time { return now }

	badge.Watch(context.Background(), "u1")
	badge.Watch(context.Background(), "u2")

	now = now.Add(2 * time.Minute)
	badge.Watch(context.Background(), "u2")
	now = now.Add(2 * time.Minute)

	getBefore, _, _ := backend.calls()
	badge.refreshAll(context.Background())

	assert.False(t, badge.watched("u1"))
	assert.True(t, badge.watched("u2"))
	get, _, _ := backend.calls()
	assert.Equal(t, getBefore+1, get, "only the active user is polled")
}

func TestBadge_ManyIdleUsersDoNotAccumulate(t *testing.T) {
	badge, backend, _ := setupBadge(t, time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	badge.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		badge.Watch(context.Background(), fmt.Sprintf("u%d", i))
	}
	now = now.Add(time.Minute)
	badge.refreshAll(context.Background())

	badge.mu.RLock()
	defer badge.mu.RUnlock()
	assert.Empty(t, badge.entries)
	get, _, _ := backend.calls()
	assert.Equal(t, 100, get)
}

func TestBadge_SignalDoesNotKeepUserAlive(t *testing.T) {
	badge, backend, bus := setupBadge(t, time.Minute)
	backend.seed("u1", backend.line("p1", 1))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	badge.now = func() time.Time { return now }

	badge.Watch(context.Background(), "u1")
	now = now.Add(10 * time.Minute)
	bus.Publish(context.Background(), events.CartChanged("u1", "add"))
	badge.refreshAll(context.Background())

	assert.False(t, badge.watched("u1"))
}

func TestBadge_NoUser(t *testing.T) {
	badge, backend, _ := setupBadge(t, time.Hour)

	assert.Zero(t, badge.Watch(context.Background(), ""))
	get, _, _ := backend.calls()
	assert.Zero(t, get)
}

func TestBadge_FailureShowsZero(t *testing.T) {
	badge, backend, _ := setupBadge(t, time.Hour)
	backend.seed("u1", backend.line("p1", 2))
	require.Equal(t, 2, badge.Watch(context.Background(), "u1"))

	backend.getErr = errBackend
	assert.Zero(t, badge.Refresh(context.Background(), "u1"))
	assert.Zero(t, badge.Count("u1"))
}

func TestBadge_RefreshesOnSignal(t *testing.T) {
	badge, backend, bus := setupBadge(t, time.Hour)
	backend.seed("u1", backend.line("p1", 1))
	backend.seed("u2", backend.line("p2", 7))
	badge.Watch(context.Background(), "u1")

	backend.seed("u1", backend.line("p1", 3))
	bus.Publish(context.Background(), events.CartChanged("u1", "add"))
	assert.Equal(t, 3, badge.Count("u1"))

	// signals for users nobody watches are ignored
	bus.Publish(context.Background(), events.CartChanged("u2", "add"))
	get, _, _ := backend.calls()
	assert.Equal(t, 2, get)
	assert.Zero(t, badge.Count("u2"))
}

func TestBadge_IdentityClearedForgets(t *testing.T) {
	badge, backend, bus := setupBadge(t, time.Hour)
	backend.seed("u1", backend.line("p1", 2))
	badge.Watch(context.Background(), "u1")

	bus.Publish(context.Background(), events.IdentityCleared("u1"))

	assert.False(t, badge.watched("u1"))
	assert.Zero(t, badge.Count("u1"))

	// a late signal does not bring the user back
	bus.Publish(context.Background(), events.CartChanged("u1", "add"))
	assert.False(t, badge.watched("u1"))
}

func TestBadge_RunPolls(t *testing.T) {
	badge, backend, _ := setupBadge(t, 10*time.Millisecond)
	backend.seed("u1", backend.line("p1", 1))
	badge.Watch(context.Background(), "u1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		badge.Run(ctx)
		close(done)
	}()

	backend.m.Lock()
	backend.carts["u1"].Lines[0].Quantity = 3
	backend.m.Unlock()

	assert.Eventually(t, func() bool { return badge.Count("u1") == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

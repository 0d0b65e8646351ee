package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe(func(_ context.Context, e Event) { got = append(got, "a:"+e.UserID) })
	bus.Subscribe(func(_ context.Context, e Event) { got = append(got, "b:"+e.UserID) })

	bus.Publish(context.Background(), CartChanged("u1", "add"))

	assert.Equal(t, []string{"a:u1", "b:u1"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(func(context.Context, Event) { calls++ })

	bus.Publish(context.Background(), CartChanged("u1", ""))
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), CartChanged("u1", ""))

	assert.Equal(t, 1, calls)
}

func TestBus_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	delivered := false

	bus.Subscribe(func(context.Context, Event) { panic("boom") })
	bus.Subscribe(func(context.Context, Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), IdentityCleared("u1"))
	})
	assert.True(t, delivered)
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	inner := 0
	bus.Subscribe(func(context.Context, Event) {
		bus.Subscribe(func(context.Context, Event) { inner++ })
	})

	bus.Publish(context.Background(), CartChanged("u1", ""))
	assert.Equal(t, 0, inner)

	bus.Publish(context.Background(), CartChanged("u1", ""))
	assert.Equal(t, 1, inner)
}

package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

func newUnitRelay(bus *Bus, queue int) *KafkaRelay {
	r := &KafkaRelay{bus: bus, instanceID: "me", out: make(chan Event, queue)}
	r.unsubscribe = bus.Subscribe(r.enqueue)
	return r
}

func TestRelay_EnqueuesLocalEventsWithOrigin(t *testing.T) {
	bus := NewBus()
	r := newUnitRelay(bus, 4)

	bus.Publish(context.Background(), CartChanged("u1", "add"))

	require.Len(t, r.out, 1)
	e := <-r.out
	assert.Equal(t, "me", e.Origin)
	assert.Equal(t, "u1", e.UserID)
}

func TestRelay_DoesNotForwardReplayedEvents(t *testing.T) {
	bus := NewBus()
	r := newUnitRelay(bus, 4)

	e := CartChanged("u1", "add")
	e.Origin = "other"
	bus.Publish(context.Background(), e)

	assert.Len(t, r.out, 0)
}

func TestRelay_DropsWhenQueueFull(t *testing.T) {
	bus := NewBus()
	r := newUnitRelay(bus, 1)

	bus.Publish(context.Background(), CartChanged("u1", ""))
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), CartChanged("u2", ""))
	})
	assert.Len(t, r.out, 1)
}

func TestRelay_HandleMessage(t *testing.T) {
	bus := NewBus()
	r := newUnitRelay(bus, 4)

	var got []Event
	bus.Subscribe(func(_ context.Context, e Event) { got = append(got, e) })

	own, _ := json.Marshal(Event{Kind: KindCartChanged, UserID: "u1", Origin: "me"})
	foreign, _ := json.Marshal(Event{Kind: KindCartChanged, UserID: "u2", Origin: "other"})
	anonymous, _ := json.Marshal(Event{Kind: KindCartChanged, Origin: "other"})

	r.handleMessage(context.Background(), own)
	r.handleMessage(context.Background(), []byte("garbage"))
	r.handleMessage(context.Background(), anonymous)
	r.handleMessage(context.Background(), foreign)

	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].UserID)
	// replayed events are not sent back out
	assert.Len(t, r.out, 0)
}

func TestKafkaRelay_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	defer func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)

	busA, busB := NewBus(), NewBus()
	relayA := NewKafkaRelay(busA, brokers...)
	relayB := NewKafkaRelay(busB, brokers...)
	defer relayA.Close()
	defer relayB.Close()

	var mu sync.Mutex
	var received []Event
	busB.Subscribe(func(_ context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go relayA.Run(runCtx)
	go relayB.Run(runCtx)

	// keep publishing until the freshly joined group of B sees one
	require.Eventually(t, func() bool {
		busA.Publish(ctx, CartChanged("u1", "add"))
		mu.Lock()
		defer mu.Unlock()
		for _, e := range received {
			if e.UserID == "u1" && e.Origin == relayA.InstanceID() {
				return true
			}
		}
		return false
	}, 60*time.Second, 2*time.Second)
}

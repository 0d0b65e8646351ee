package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	Topic          = "storefront-cart-events"
	relayQueueSize = 256
)

// KafkaRelay forwards events raised on this instance to Kafka and replays
// events from other instances on the local bus, so every replica refreshes
// its badges when a cart changes anywhere.
type KafkaRelay struct {
	bus        *Bus
	instanceID string
	writer     *kafka.Writer
	reader     *kafka.Reader
	out        chan Event

	unsubscribe func()
	closeOnce   sync.Once
}

func NewKafkaRelay(bus *Bus, brokers ...string) *KafkaRelay {
	instanceID := uuid.NewString()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	// every instance needs every event, so each gets its own group
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       Topic,
		GroupID:     "storefront-" + instanceID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})

	r := &KafkaRelay{
		bus:        bus,
		instanceID: instanceID,
		writer:     w,
		reader:     reader,
		out:        make(chan Event, relayQueueSize),
	}
	r.unsubscribe = bus.Subscribe(r.enqueue)
	return r
}

func (r *KafkaRelay) InstanceID() string {
	return r.instanceID
}

// enqueue picks up local events only; replayed events already carry an origin.
func (r *KafkaRelay) enqueue(ctx context.Context, e Event) {
	if e.Origin != "" {
		return
	}
	e.Origin = r.instanceID
	select {
	case r.out <- e:
	default:
		logger.FromContext(ctx).Warn("cart event relay queue full, dropping event",
			zap.String("kind", string(e.Kind)),
			zap.String("user_id", e.UserID))
	}
}

// Run publishes and consumes until ctx is cancelled.
func (r *KafkaRelay) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.publishLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		r.consumeLoop(ctx)
	}()
	wg.Wait()
}

func (r *KafkaRelay) publishLoop(ctx context.Context) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.out:
			payload, err := json.Marshal(e)
			if err != nil {
				log.Error("failed to marshal cart event", zap.Error(err))
				continue
			}
			msg := kafka.Message{
				Key:   []byte(e.UserID),
				Value: payload,
				Headers: []kafka.Header{
					{Key: "event_type", Value: []byte(e.Kind)},
				},
			}
			if err := r.writer.WriteMessages(ctx, msg); err != nil && ctx.Err() == nil {
				log.Error("failed to publish cart event", zap.String("user_id", e.UserID), zap.Error(err))
			}
		}
	}
}

func (r *KafkaRelay) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.FromContext(ctx).Error("error reading cart event", zap.Error(err))
			continue
		}
		r.handleMessage(ctx, m.Value)
	}
}

func (r *KafkaRelay) handleMessage(ctx context.Context, value []byte) {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		logger.FromContext(ctx).Warn("error parsing cart event", zap.Error(err))
		return
	}
	if e.Origin == "" || e.Origin == r.instanceID || e.UserID == "" {
		return
	}
	r.bus.Publish(ctx, e)
}

func (r *KafkaRelay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.unsubscribe()
		err = errors.Join(r.writer.Close(), r.reader.Close())
	})
	return err
}

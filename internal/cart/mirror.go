package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Mirror holds the last known copy of each user's cart.
type Mirror interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrMirrorMiss = errors.New("cart mirror miss")

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisMirror struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisMirror) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, mirrorKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMirrorMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisMirror) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, mirrorKey(userID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisMirror) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, mirrorKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func mirrorKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

// MemoryMirror is a process-local Mirror.
type MemoryMirror struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{carts: make(map[string]*domain.Cart)}
}

func (m *MemoryMirror) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrMirrorMiss
	}
	return c.Clone(), nil
}

func (m *MemoryMirror) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart.Clone()
	return nil
}

func (m *MemoryMirror) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisMirror, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisMirror(client), mr
}

func sampleCart(userID string) *domain.Cart {
	return &domain.Cart{
		UserID: userID,
		Lines: []domain.CartLine{
			{Product: domain.Product{ID: "p1", Name: "Mouse", Price: decimal.RequireFromString("10.50"), Stock: 3}, Quantity: 2},
		},
	}
}

func exerciseMirror(t *testing.T, m Mirror) {
	ctx := context.Background()

	_, err := m.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMirrorMiss)

	require.NoError(t, m.Set(ctx, "u1", sampleCart("u1")))
	got, err := m.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "21.00", got.FormattedSubtotal())
	assert.Equal(t, 3, got.Lines[0].Product.Stock)

	// carts are per user
	_, err = m.Get(ctx, "u2")
	assert.ErrorIs(t, err, ErrMirrorMiss)

	require.NoError(t, m.Delete(ctx, "u1"))
	_, err = m.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMirrorMiss)
}

func TestMemoryMirror(t *testing.T) {
	exerciseMirror(t, NewMemoryMirror())
}

func TestMemoryMirror_CopiesOnReadAndWrite(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()
	c := sampleCart("u1")
	require.NoError(t, m.Set(ctx, "u1", c))

	c.Lines[0].Quantity = 99
	got, _ := m.Get(ctx, "u1")
	assert.Equal(t, 2, got.Lines[0].Quantity)

	got.Lines[0].Quantity = 50
	again, _ := m.Get(ctx, "u1")
	assert.Equal(t, 2, again.Lines[0].Quantity)
}

func TestRedisMirror(t *testing.T) {
	m, _ := setupTestRedis(t)
	exerciseMirror(t, m)
}

func TestRedisMirror_KeyAndTTL(t *testing.T) {
	m, mr := setupTestRedis(t)
	require.NoError(t, m.Set(context.Background(), "u1", sampleCart("u1")))

	assert.True(t, mr.Exists("cart:u1"))
	ttl := mr.TTL("cart:u1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	mr.FastForward(21 * time.Minute)
	_, err := m.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrMirrorMiss)
}

func TestRedisMirror_CorruptValue(t *testing.T) {
	m, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:u1", "not-json"))

	_, err := m.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMirrorMiss)
}

func TestRedisMirror_ServerDown(t *testing.T) {
	m, mr := setupTestRedis(t)
	mr.Close()

	_, err := m.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMirrorMiss)
	assert.Error(t, m.Set(context.Background(), "u1", sampleCart("u1")))
}

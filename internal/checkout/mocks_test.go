package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// MockSessionCreator records every checkout request it receives.
type MockSessionCreator struct {
	mu       sync.Mutex
	Session  *domain.CheckoutSession
	Err      error
	Requests []*domain.CheckoutRequest
	Provider domain.Provider

	// when set, CreateCheckoutSession blocks until it is closed
	Release chan struct{}
	Entered chan struct{}
}

func (m *MockSessionCreator) CreateCheckoutSession(_ context.Context, provider domain.Provider, req *domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.Provider = provider
	m.mu.Unlock()

	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.Release != nil {
		<-m.Release
	}
	return m.Session, m.Err
}

func (m *MockSessionCreator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockCarts hands out copies of a fixed snapshot.
type MockCarts struct {
	Cart   *domain.Cart
	Notice *domain.Notice
}

func (m *MockCarts) Snapshot(_ context.Context, _ string) (*domain.Cart, *domain.Notice) {
	if m.Notice != nil {
		return domain.NewEmptyCart(""), m.Notice
	}
	return m.Cart.Clone(), nil
}

type staticIdentity struct {
	user *domain.User
}

func (s staticIdentity) CurrentUser(context.Context) *domain.User {
	return s.user
}

func testCart() *domain.Cart {
	return &domain.Cart{
		UserID: "u1",
		Lines: []domain.CartLine{
			{
				Product:  domain.Product{ID: "p1", Name: "Mouse", Price: decimal.NewFromInt(10), Stock: 3, Images: []domain.ProductImage{{URL: "https://img/p1.png"}}},
				Quantity: 2,
			},
			{
				Product:  domain.Product{ID: "p2", Name: "Pad", Price: decimal.NewFromInt(5), Stock: 9},
				Quantity: 1,
			},
		},
	}
}

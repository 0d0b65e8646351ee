// Package session resolves who the current user is. The identity record is
// persisted per session token and read once per request; everything
// downstream gets it through Identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store struct {
	storage Storage
	bus     *events.Bus
}

func NewStore(storage Storage, bus *events.Bus) *Store {
	return &Store{storage: storage, bus: bus}
}

func NewToken() string {
	return uuid.NewString()
}

// Current returns the persisted identity for token, or nil when there is
// none. Corrupt or unreadable records count as no identity.
func (s *Store) Current(ctx context.Context, token string) *domain.User {
	if token == "" {
		return nil
	}

	data, err := s.storage.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.FromContext(ctx).Warn("session storage read failed", zap.Error(err))
		}
		return nil
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		logger.FromContext(ctx).Warn("discarding malformed identity record", zap.Error(err))
		return nil
	}
	if err := user.Validate(); err != nil {
		logger.FromContext(ctx).Warn("discarding identity record without id")
		return nil
	}
	return &user
}

// Set persists user for token, replacing any previous identity.
func (s *Store) Set(ctx context.Context, token string, user *domain.User) error {
	if token == "" {
		return errors.New("empty session token")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	previous := s.Current(ctx, token)

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := s.storage.Set(ctx, token, data); err != nil {
		return err
	}

	// a different user on the same token logs the previous one out
	if previous != nil && previous.ID != user.ID {
		s.bus.Publish(ctx, events.IdentityCleared(previous.ID))
	}
	return nil
}

// Clear removes the identity and tells subscribers to drop the user's state.
func (s *Store) Clear(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	user := s.Current(ctx, token)

	if err := s.storage.Delete(ctx, token); err != nil {
		return err
	}

	if user != nil {
		s.bus.Publish(ctx, events.IdentityCleared(user.ID))
	}
	return nil
}

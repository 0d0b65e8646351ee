package session

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type userKey struct{}

// Identity answers who the current user is for a request.
type Identity interface {
	CurrentUser(ctx context.Context) *domain.User
}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey{}).(*domain.User)
	return user
}

// ContextIdentity reads the user the session middleware resolved.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) *domain.User {
	return UserFromContext(ctx)
}

// UserID returns the current user's id or "".
func UserID(ctx context.Context, id Identity) string {
	if u := id.CurrentUser(ctx); u != nil {
		return u.ID
	}
	return ""
}

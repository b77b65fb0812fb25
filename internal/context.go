package internal

import (
	"context"
	"time"

	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

type ctxKey string

const (
	ContextPrincipalKey ctxKey = "principal"
	ContextWishlistKey  ctxKey = "wishlistGrant"
)

func PrincipalFromContext(ctx context.Context) (*coreuser.Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextPrincipalKey).(*coreuser.Principal)
	return p, ok && p != nil
}

func ContextWithPrincipal(ctx context.Context, p *coreuser.Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID
	}
	return ""
}

// WishlistGrantFromContext returns the email holding a wishlist access grant, if any.
func WishlistGrantFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	email, ok := ctx.Value(ContextWishlistKey).(string)
	return email, ok && email != ""
}

func ContextWithWishlistGrant(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextWishlistKey, email)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
)

type (
	principalKey  struct{}
	guestTokenKey struct{}
)

// Principal is the signed-in caller behind a request.
type Principal struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// TransitionID is the jti of the sign-in; a guest cart is merged at most
	// once per transition.
	TransitionID string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports false for guests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

// UserIDFromContext is "" for guests.
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

func UserRoleFromContext(ctx context.Context) enums.UserRole {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

func TransitionIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.TransitionID
}

func WithGuestToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, guestTokenKey{}, token)
}

// GuestTokenFromContext returns the X-Guest-Cart token, if the client sent one.
func GuestTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(guestTokenKey{}).(string)
	return token
}

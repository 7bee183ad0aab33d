package auth

import (
	"context"
	"errors"

	"github.com/ghuser/inventory/pkg/logger"
)

type contextKey string

const identityKey contextKey = "identity"

// ErrNoSession is returned when the request carries no signed-in user.
var ErrNoSession = errors.New("no session")

// Identity is the signed-in user resolved from the session cookie.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// IdentityFromCtx returns the identity attached by LoadSession, or ErrNoSession.
func IdentityFromCtx(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityKey).(*Identity)
	if !ok || id == nil || id.UserID == "" {
		return nil, ErrNoSession
	}
	return id, nil
}

// UserIDFromCtx returns the signed-in user id, or "" for anonymous requests.
func UserIDFromCtx(ctx context.Context) string {
	id, err := IdentityFromCtx(ctx)
	if err != nil {
		return ""
	}
	return id.UserID
}

// WithIdentity returns a copy of ctx carrying id. Log records written with
// the returned context are tagged with the user id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	if id != nil {
		ctx = logger.WithUserID(ctx, id.UserID)
	}
	return ctx
}

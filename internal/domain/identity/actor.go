// Package identity carries the acting principal into the ledger. Callers
// authenticate; the ledger trusts what it is handed.
package identity

import (
	"context"

	"microloan-ledger/internal/domain/user"
)

type Actor struct {
	Username string
	Role     user.Role
}

func (a Actor) Is(role user.Role) bool { return a.Username != "" && a.Role == role }

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

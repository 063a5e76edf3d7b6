package usermock

import (
	"context"

	domain "microloan-ledger/internal/domain/user"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	ListFn       func(ctx context.Context) ([]domain.User, error)
	ReplaceAllFn func(ctx context.Context, users []domain.User) error
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) List(ctx context.Context) ([]domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) ReplaceAll(ctx context.Context, users []domain.User) error {
	if m.ReplaceAllFn != nil {
		return m.ReplaceAllFn(ctx, users)
	}
	return nil
}

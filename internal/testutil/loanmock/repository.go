package loanmock

import (
	"context"

	domain "microloan-ledger/internal/domain/loan"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	ListFn       func(ctx context.Context) ([]domain.Loan, error)
	ReplaceAllFn func(ctx context.Context, loans []domain.Loan) error
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) List(ctx context.Context) ([]domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) ReplaceAll(ctx context.Context, loans []domain.Loan) error {
	if m.ReplaceAllFn != nil {
		return m.ReplaceAllFn(ctx, loans)
	}
	return nil
}

package uow

import (
	"context"

	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/user"
)

type Repos struct {
	Loans loan.Repository
	Users user.Repository
}

// UnitOfWork is the single-writer critical section every mutating ledger
// operation runs in: read -> mutate -> write happens with no other writer
// interleaved. Only transactional implementations also make writes to two
// collections atomic.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// Repos gives read-only callers the same repositories outside the lock.
	Repos() Repos
}

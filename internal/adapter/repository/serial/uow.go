package serial

import (
	"context"
	"sync"

	"microloan-ledger/internal/domain/uow"
)

// UoW serializes every WithinTx call in the process behind one mutex so two
// writers never interleave their read-modify-write of a collection.
type UoW struct {
	mu    sync.Mutex
	repos uow.Repos
}

var _ uow.UnitOfWork = (*UoW)(nil)

func New(repos uow.Repos) *UoW { return &UoW{repos: repos} }

func (u *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(u.repos)
}

func (u *UoW) Repos() uow.Repos { return u.repos }

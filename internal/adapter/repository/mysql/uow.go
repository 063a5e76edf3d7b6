package mysql

import (
	"context"
	"errors"
	"log"
	"sync"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/uow"

	"gorm.io/gorm"
)

// UoW runs each unit of work inside one gorm transaction, so the loan and
// user writes of a funding or refund commit together or not at all. The mutex
// keeps writers in this process from interleaving their whole-table replaces.
type UoW struct {
	mu sync.Mutex
	db *gorm.DB
}

var _ uow.UnitOfWork = (*UoW)(nil)

func NewUoW(db *gorm.DB) *UoW { return &UoW{db: db} }

func (u *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(uow.Repos{
			Loans: NewLoanRepository(tx),
			Users: NewUserRepository(tx),
		})
	})
	// the loan write was rolled back with the failed balance write
	var pce *errs.PartialCommitError
	if errors.As(err, &pce) {
		log.Printf("mysql: rolled back %s loan=%s user=%s: %v", pce.Op, pce.LoanID, pce.Username, pce.Err)
		return errs.Persistence(pce.Err)
	}
	return err
}

func (u *UoW) Repos() uow.Repos {
	return uow.Repos{Loans: NewLoanRepository(u.db), Users: NewUserRepository(u.db)}
}

// Package memstore is an in-memory loan and user collection pair for tests.
// Each collection can be told to fail its next writes.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/uow"
	"microloan-ledger/internal/domain/user"
)

type Store struct {
	mu             sync.Mutex
	loans          []loan.Loan
	users          []user.User
	failLoanWrites int
	failUserWrites int
	loanWrites     int
	userWrites     int
}

func New() *Store { return &Store{} }

func (s *Store) Repos() uow.Repos {
	return uow.Repos{Loans: loanRepo{s}, Users: userRepo{s}}
}

// Seed replaces both collections without counting as writes.
func (s *Store) Seed(loans []loan.Loan, users []user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans = cloneLoans(loans)
	s.users = append([]user.User(nil), users...)
}

// FailLoanWrites makes the next n loan writes fail.
func (s *Store) FailLoanWrites(n int) { s.mu.Lock(); s.failLoanWrites = n; s.mu.Unlock() }

// FailUserWrites makes the next n user writes fail.
func (s *Store) FailUserWrites(n int) { s.mu.Lock(); s.failUserWrites = n; s.mu.Unlock() }

func (s *Store) Loans() []loan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLoans(s.loans)
}

func (s *Store) Users() []user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]user.User(nil), s.users...)
}

func (s *Store) User(username string) (user.User, bool) {
	for _, u := range s.Users() {
		if u.Username == username {
			return u, true
		}
	}
	return user.User{}, false
}

func (s *Store) Loan(id string) (loan.Loan, bool) {
	for _, l := range s.Loans() {
		if l.ID == id {
			return l, true
		}
	}
	return loan.Loan{}, false
}

// Writes reports how many successful writes each collection received.
func (s *Store) Writes() (loans, users int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loanWrites, s.userWrites
}

func cloneLoans(in []loan.Loan) []loan.Loan {
	out := make([]loan.Loan, len(in))
	for i := range in {
		out[i] = in[i].Clone()
		out[i].Position = i
	}
	return out
}

type loanRepo struct{ s *Store }

func (r loanRepo) List(ctx context.Context) ([]loan.Loan, error) { return r.s.Loans(), nil }

func (r loanRepo) ReplaceAll(ctx context.Context, loans []loan.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failLoanWrites > 0 {
		r.s.failLoanWrites--
		return fmt.Errorf("%w: memstore: loan write refused", errs.ErrPersistence)
	}
	r.s.loans = cloneLoans(loans)
	r.s.loanWrites++
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) List(ctx context.Context) ([]user.User, error) { return r.s.Users(), nil }

func (r userRepo) ReplaceAll(ctx context.Context, users []user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failUserWrites > 0 {
		r.s.failUserWrites--
		return fmt.Errorf("%w: memstore: user write refused", errs.ErrPersistence)
	}
	r.s.users = append([]user.User(nil), users...)
	r.s.userWrites++
	return nil
}

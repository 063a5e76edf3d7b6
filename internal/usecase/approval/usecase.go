package approval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/identity"
	domainLoan "microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/uow"
	"microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/infrastructure/metrics"
	"microloan-ledger/pkg/money"
)

// Usecase holds the administrator's side of the lifecycle: final approval
// and rejection.
type Usecase struct {
	uow    uow.UnitOfWork
	events domainLoan.Events
	now    func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, ev domainLoan.Events) *Usecase {
	if ev == nil {
		ev = domainLoan.NopEvents{}
	}
	return &Usecase{uow: tx, events: ev, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func requireAdmin(actor identity.Actor) error {
	if !actor.Is(user.RoleAdmin) {
		return fmt.Errorf("%w: admin only", errs.ErrForbidden)
	}
	return nil
}

// ApproveLoan: approved_by_lender -> funded.
func (u *Usecase) ApproveLoan(ctx context.Context, actor identity.Actor, loanID string) (*domainLoan.Loan, error) {
	l, err := u.approve(ctx, actor, loanID)
	metrics.Observe("approve", err)
	if err != nil {
		return nil, err
	}
	u.events.LoanApproved(l.Clone())
	return l, nil
}

func (u *Usecase) approve(ctx context.Context, actor identity.Actor, loanID string) (*domainLoan.Loan, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var out domainLoan.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		i := domainLoan.FindIndex(loans, loanID)
		if i < 0 {
			return fmt.Errorf("%w: %s", errs.ErrLoanNotFound, loanID)
		}
		l := &loans[i]
		if l.Status != domainLoan.StatusApprovedByLender {
			return fmt.Errorf("%w: loan %s is %s, want %s", errs.ErrInvalidState, loanID, l.Status, domainLoan.StatusApprovedByLender)
		}

		at := u.now()
		l.Status = domainLoan.StatusFunded
		l.ApprovedAt = &at
		if err := r.Loans.ReplaceAll(ctx, loans); err != nil {
			return errs.Persistence(err)
		}
		out = l.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectLoan: pending or approved_by_lender -> rejected. A lender who already
// committed funds gets the principal back.
func (u *Usecase) RejectLoan(ctx context.Context, actor identity.Actor, loanID string) (*domainLoan.Loan, error) {
	l, err := u.reject(ctx, actor, loanID)
	metrics.Observe("reject", err)
	if err != nil {
		return nil, err
	}
	u.events.LoanRejected(l.Clone())
	return l, nil
}

func (u *Usecase) reject(ctx context.Context, actor identity.Actor, loanID string) (*domainLoan.Loan, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var out domainLoan.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		i := domainLoan.FindIndex(loans, loanID)
		if i < 0 {
			return fmt.Errorf("%w: %s", errs.ErrLoanNotFound, loanID)
		}
		l := &loans[i]
		if l.Status.Terminal() {
			return fmt.Errorf("%w: loan %s is already %s", errs.ErrInvalidState, loanID, l.Status)
		}

		refund := l.Status == domainLoan.StatusApprovedByLender
		var users []user.User
		j := -1
		if refund {
			if users, err = r.Users.List(ctx); err != nil {
				return errs.Persistence(err)
			}
			if j = user.FindIndex(users, l.Lender()); j < 0 {
				return fmt.Errorf("%w: lender %s of loan %s", errs.ErrUserNotFound, l.Lender(), loanID)
			}
		}

		at := u.now()
		l.Status = domainLoan.StatusRejected
		l.RejectedAt = &at
		if err := r.Loans.ReplaceAll(ctx, loans); err != nil {
			return errs.Persistence(err)
		}

		if refund {
			users[j].Balance = money.Round2(users[j].Balance.Add(l.Amount))
			if err := r.Users.ReplaceAll(ctx, users); err != nil {
				return &errs.PartialCommitError{Op: "reject", LoanID: l.ID, Username: l.Lender(), Amount: l.Amount, Err: err}
			}
		}
		out = l.Clone()
		return nil
	})
	var pce *errs.PartialCommitError
	if errors.As(err, &pce) {
		log.Printf("approval: partial commit loan=%s lender=%s amount=%s: loan rejected, refund lost: %v",
			pce.LoanID, pce.Username, pce.Amount.StringFixed(2), pce.Err)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Package funding moves a pending loan to approved_by_lender and debits the
// lender. The loan and user collections are written one after the other; a
// failure between the two is reported as a partial commit unless the unit of
// work rolls both back.
package funding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/identity"
	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/uow"
	"microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/infrastructure/metrics"
	"microloan-ledger/pkg/money"
)

// DefaultInterestRate is the annual system rate in percent.
var DefaultInterestRate = decimal.NewFromInt(10)

type Usecase struct {
	uow    uow.UnitOfWork
	events loan.Events
	rate   decimal.Decimal
	now    func() time.Time
}

// NewUsecase: rate is the annual percent applied to every funded loan; a
// non-positive rate falls back to DefaultInterestRate.
func NewUsecase(tx uow.UnitOfWork, ev loan.Events, rate decimal.Decimal) *Usecase {
	if ev == nil {
		ev = loan.NopEvents{}
	}
	if !rate.IsPositive() {
		rate = DefaultInterestRate
	}
	return &Usecase{uow: tx, events: ev, rate: rate, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Rate() decimal.Decimal { return u.rate }

func (u *Usecase) FundLoan(ctx context.Context, actor identity.Actor, loanID string) (*loan.Loan, error) {
	l, err := u.fund(ctx, actor, loanID)
	metrics.Observe("fund", err)
	if err != nil {
		return nil, err
	}
	u.events.LoanFunded(l.Clone())
	return l, nil
}

func (u *Usecase) fund(ctx context.Context, actor identity.Actor, loanID string) (*loan.Loan, error) {
	if !actor.Is(user.RoleLender) {
		return nil, fmt.Errorf("%w: only lenders can fund loans", errs.ErrForbidden)
	}

	// Unlocked pre-check so obviously unavailable loans never queue for the lock.
	// A lender racing the winner can fail here with ErrLoanUnavailable or
	// under the lock with ErrConcurrencyConflict; the latter matches the
	// former, so callers only test for ErrLoanUnavailable.
	loans, err := u.uow.Repos().Loans.List(ctx)
	if err != nil {
		return nil, errs.Persistence(err)
	}
	i := loan.FindIndex(loans, loanID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrLoanNotFound, loanID)
	}
	if loans[i].Status != loan.StatusPending {
		return nil, fmt.Errorf("%w: loan %s is %s", errs.ErrLoanUnavailable, loanID, loans[i].Status)
	}

	var funded loan.Loan
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		i := loan.FindIndex(loans, loanID)
		if i < 0 {
			return fmt.Errorf("%w: %s", errs.ErrLoanNotFound, loanID)
		}
		l := &loans[i]
		if l.Status != loan.StatusPending {
			return fmt.Errorf("%w: loan %s is now %s", errs.ErrConcurrencyConflict, loanID, l.Status)
		}
		if !l.SaneAmounts() {
			return fmt.Errorf("%w: loan %s amount=%s duration=%d", errs.ErrInvalidLoanData, loanID, l.Amount, l.DurationMonths)
		}

		users, err := r.Users.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		j := user.FindIndex(users, actor.Username)
		if j < 0 {
			return fmt.Errorf("%w: lender %s", errs.ErrUserNotFound, actor.Username)
		}
		if users[j].Balance.LessThan(l.Amount) {
			return fmt.Errorf("%w: balance %s, loan needs %s", errs.ErrInsufficientBalance,
				users[j].Balance.StringFixed(2), l.Amount.StringFixed(2))
		}

		l.ApplyFunding(loan.NewFunding(actor.Username, l.Amount, l.DurationMonths, u.rate, u.now()))
		if err := r.Loans.ReplaceAll(ctx, loans); err != nil {
			return errs.Persistence(err)
		}

		users[j].Balance = money.Round2(users[j].Balance.Sub(l.Amount))
		if err := r.Users.ReplaceAll(ctx, users); err != nil {
			return &errs.PartialCommitError{Op: "fund", LoanID: l.ID, Username: actor.Username, Amount: l.Amount, Err: err}
		}
		funded = l.Clone()
		return nil
	})
	var pce *errs.PartialCommitError
	if errors.As(err, &pce) {
		log.Printf("funding: partial commit loan=%s lender=%s amount=%s: loan saved as approved_by_lender, debit lost: %v",
			pce.LoanID, pce.Username, pce.Amount.StringFixed(2), pce.Err)
	}
	if err != nil {
		return nil, err
	}
	return &funded, nil
}

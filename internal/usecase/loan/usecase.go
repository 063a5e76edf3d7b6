package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/identity"
	domain "microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/uow"
	"microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/infrastructure/metrics"
	"microloan-ledger/pkg/id"
	"microloan-ledger/pkg/money"
)

type Usecase struct {
	uow    uow.UnitOfWork
	events domain.Events
	now    func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, ev domain.Events) *Usecase {
	if ev == nil {
		ev = domain.NopEvents{}
	}
	return &Usecase{uow: tx, events: ev, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (in CreateLoanInput) validate() error {
	if !in.Amount.IsPositive() {
		return errs.Validation("amount", "must be greater than 0")
	}
	if !money.HasCents(in.Amount) {
		return errs.Validation("amount", "at most 2 decimal places")
	}
	if in.DurationMonths <= 0 {
		return errs.Validation("duration_months", "must be greater than 0")
	}
	return nil
}

// CreateLoanRequest appends a pending loan for the acting borrower.
func (u *Usecase) CreateLoanRequest(ctx context.Context, actor identity.Actor, in CreateLoanInput) (*domain.Loan, error) {
	l, err := u.create(ctx, actor, in)
	metrics.Observe("create_loan", err)
	if err != nil {
		return nil, err
	}
	u.events.LoanRequested(l.Clone())
	return l, nil
}

func (u *Usecase) create(ctx context.Context, actor identity.Actor, in CreateLoanInput) (*domain.Loan, error) {
	if !actor.Is(user.RoleBorrower) {
		return nil, fmt.Errorf("%w: only borrowers can request loans", errs.ErrForbidden)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	l := domain.Loan{
		ID:               id.NewLoanID(),
		BorrowerUsername: actor.Username,
		Amount:           in.Amount,
		DurationMonths:   in.DurationMonths,
		Status:           domain.StatusPending,
		Description:      in.Description,
		ProofOfIncomeRef: in.ProofOfIncomeRef,
		CreatedAt:        u.now(),
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		l.Position = len(loans)
		loans = append(loans, l)
		return errs.Persistence(r.Loans.ReplaceAll(ctx, loans))
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLoans is the whole collection in insertion order.
func (u *Usecase) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	loans, err := u.uow.Repos().Loans.List(ctx)
	if err != nil {
		return nil, errs.Persistence(err)
	}
	return loans, nil
}

// GetUserLoans filters by borrower or lender depending on role. Any other
// role sees nothing.
func (u *Usecase) GetUserLoans(ctx context.Context, username string, role user.Role) ([]domain.Loan, error) {
	loans, err := u.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Loan{}
	for _, l := range loans {
		switch {
		case role == user.RoleBorrower && l.BorrowerUsername == username:
			out = append(out, l)
		case role == user.RoleLender && l.Lender() == username:
			out = append(out, l)
		}
	}
	return out, nil
}

func (u *Usecase) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loans, err := u.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	i := domain.FindIndex(loans, loanID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrLoanNotFound, loanID)
	}
	return &loans[i], nil
}

// Detail derives age, overdue flag and monthly instalment as of now.
func (u *Usecase) Detail(l domain.Loan) LoanDetail {
	now := u.now()
	d := LoanDetail{Loan: l, AgeDays: l.AgeDays(now), Overdue: l.IsOverdue(now)}
	if l.InterestRate.Valid {
		d.MonthlyPayment = decimal.NewNullDecimal(l.MonthlyPayment())
	}
	return d
}

func (u *Usecase) Details(loans []domain.Loan) []LoanDetail {
	out := make([]LoanDetail, 0, len(loans))
	for _, l := range loans {
		out = append(out, u.Detail(l))
	}
	return out
}

// AvailableLoans lists pending loans with the borrower anonymised.
func (u *Usecase) AvailableLoans(ctx context.Context) ([]LoanView, error) {
	loans, err := u.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	now := u.now()
	out := []LoanView{}
	for _, l := range loans {
		if l.Status != domain.StatusPending {
			continue
		}
		out = append(out, LoanView{
			ID:             l.ID,
			Borrower:       l.AnonymizedBorrower(),
			Amount:         l.Amount,
			DurationMonths: l.DurationMonths,
			Description:    l.Description,
			CreatedAt:      l.CreatedAt,
			AgeDays:        l.AgeDays(now),
		})
	}
	return out, nil
}

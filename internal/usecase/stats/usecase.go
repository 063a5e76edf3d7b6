package stats

import (
	"context"

	"github.com/shopspring/decimal"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/uow"
	"microloan-ledger/internal/domain/user"
)

type Stats struct {
	TotalLoans       int             `json:"total_loans"`
	PendingLoans     int             `json:"pending_loans"`
	FundedLoans      int             `json:"funded_loans"`
	ApprovedByLender int             `json:"approved_by_lender_loans"`
	RejectedLoans    int             `json:"rejected_loans"`
	Lenders          int             `json:"lenders"`
	Borrowers        int             `json:"borrowers"`
	FundedVolume     decimal.Decimal `json:"funded_volume"`
}

// Usecase recomputes everything from the current snapshot on every call.
type Usecase struct{ repos uow.Repos }

func NewUsecase(repos uow.Repos) *Usecase { return &Usecase{repos: repos} }

func (u *Usecase) GetLoanStats(ctx context.Context) (*Stats, error) {
	loans, err := u.repos.Loans.List(ctx)
	if err != nil {
		return nil, errs.Persistence(err)
	}
	users, err := u.repos.Users.List(ctx)
	if err != nil {
		return nil, errs.Persistence(err)
	}
	s := Count(loans, users)
	return &s, nil
}

// Count is the pure aggregation behind GetLoanStats.
func Count(loans []loan.Loan, users []user.User) Stats {
	s := Stats{TotalLoans: len(loans), FundedVolume: decimal.Zero}
	for _, l := range loans {
		switch l.Status {
		case loan.StatusPending:
			s.PendingLoans++
		case loan.StatusApprovedByLender:
			s.ApprovedByLender++
		case loan.StatusFunded:
			s.FundedLoans++
			s.FundedVolume = s.FundedVolume.Add(l.Amount)
		case loan.StatusRejected:
			s.RejectedLoans++
		}
	}
	for _, u := range users {
		switch u.Role {
		case user.RoleLender:
			s.Lenders++
		case user.RoleBorrower:
			s.Borrowers++
		}
	}
	return s
}

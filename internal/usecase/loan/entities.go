package loan

import (
	"time"

	"github.com/shopspring/decimal"

	domain "microloan-ledger/internal/domain/loan"
)

type CreateLoanInput struct {
	Amount           decimal.Decimal `json:"amount"`
	DurationMonths   int             `json:"duration_months"`
	Description      string          `json:"description"`
	ProofOfIncomeRef string          `json:"proof_of_income"`
}

// LoanView is a pending loan as a prospective lender sees it.
type LoanView struct {
	ID             string          `json:"id"`
	Borrower       string          `json:"borrower"`
	Amount         decimal.Decimal `json:"amount"`
	DurationMonths int             `json:"duration_months"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
	AgeDays        int             `json:"age_days"`
}

// LoanDetail is a stored loan plus figures derived from it at read time.
// MonthlyPayment is null until the loan has been priced.
type LoanDetail struct {
	domain.Loan
	AgeDays        int                 `json:"age_days"`
	Overdue        bool                `json:"overdue"`
	MonthlyPayment decimal.NullDecimal `json:"monthly_payment"`
}

package loan

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"microloan-ledger/pkg/money"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusApprovedByLender Status = "approved_by_lender"
	StatusFunded           Status = "funded"
	StatusRejected         Status = "rejected"
)

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool { return s == StatusFunded || s == StatusRejected }

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApprovedByLender, StatusFunded, StatusRejected:
		return true
	}
	return false
}

// Table: loans. Position keeps the collection's insertion order.
type Loan struct {
	ID               string              `gorm:"column:id;primaryKey;size:36" json:"id"`
	Position         int                 `gorm:"column:position;not null;index" json:"-"`
	BorrowerUsername string              `gorm:"column:borrower_username;size:64;not null;index" json:"borrower_username"`
	LenderUsername   *string             `gorm:"column:lender_username;size:64;index" json:"lender_username"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	DurationMonths   int                 `gorm:"column:duration_months;not null" json:"duration_months"`
	Status           Status              `gorm:"column:status;size:32;not null;index" json:"status"`
	InterestRate     decimal.NullDecimal `gorm:"column:interest_rate;type:decimal(6,2)" json:"interest_rate"`
	InterestAmount   decimal.NullDecimal `gorm:"column:interest_amount;type:decimal(18,2)" json:"interest_amount"`
	TotalRepayment   decimal.NullDecimal `gorm:"column:total_repayment;type:decimal(18,2)" json:"total_repayment"`
	Description      string              `gorm:"column:description;type:text" json:"description"`
	ProofOfIncomeRef string              `gorm:"column:proof_of_income;type:text" json:"proof_of_income"`
	CreatedAt        time.Time           `gorm:"column:created_at;not null" json:"created_at"`
	FundedAt         *time.Time          `gorm:"column:funded_at" json:"funded_at"`
	ApprovedAt       *time.Time          `gorm:"column:approved_at" json:"approved_at"`
	RejectedAt       *time.Time          `gorm:"column:rejected_at" json:"rejected_at"`

	// Unparsed keeps stored values that were not numbers, keyed by json field
	// name, so a store can write them back untouched.
	Unparsed map[string]string `gorm:"-" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// Funding is what a lender commits at the pending -> approved_by_lender step.
type Funding struct {
	Lender         string
	Rate           decimal.Decimal
	InterestAmount decimal.Decimal
	TotalRepayment decimal.Decimal
	At             time.Time
}

// NewFunding prices a loan of amount over months at the annual percent rate.
func NewFunding(lender string, amount decimal.Decimal, months int, rate decimal.Decimal, at time.Time) Funding {
	interest := money.InterestAmount(amount, rate, months)
	return Funding{
		Lender:         lender,
		Rate:           rate,
		InterestAmount: interest,
		TotalRepayment: money.TotalRepayment(amount, interest),
		At:             at,
	}
}

// ApplyFunding sets the funding group together, exactly once.
func (l *Loan) ApplyFunding(f Funding) {
	lender := f.Lender
	at := f.At
	l.LenderUsername = &lender
	l.InterestRate = decimal.NewNullDecimal(f.Rate)
	l.InterestAmount = decimal.NewNullDecimal(f.InterestAmount)
	l.TotalRepayment = decimal.NewNullDecimal(f.TotalRepayment)
	l.FundedAt = &at
	l.Status = StatusApprovedByLender
}

// HasFunding reports whether any funding field is set.
func (l *Loan) HasFunding() bool {
	return l.LenderUsername != nil || l.InterestRate.Valid || l.InterestAmount.Valid ||
		l.TotalRepayment.Valid || l.FundedAt != nil
}

// Lender returns the lender username or "".
func (l *Loan) Lender() string {
	if l.LenderUsername == nil {
		return ""
	}
	return *l.LenderUsername
}

// SaneAmounts reports whether the stored principal and duration are usable.
func (l *Loan) SaneAmounts() bool {
	return len(l.Unparsed) == 0 && l.Amount.IsPositive() && money.HasCents(l.Amount) && l.DurationMonths > 0
}

func (l *Loan) AgeDays(now time.Time) int {
	return int(now.Sub(l.CreatedAt).Hours() / 24)
}

// IsOverdue: the loan has been funded for longer than 30 days per month of term.
func (l *Loan) IsOverdue(now time.Time) bool {
	if l.FundedAt == nil {
		return false
	}
	due := l.FundedAt.AddDate(0, 0, 30*l.DurationMonths)
	return now.After(due)
}

// MonthlyPayment is zero until the loan has been priced.
func (l *Loan) MonthlyPayment() decimal.Decimal {
	if !l.InterestRate.Valid {
		return decimal.Zero
	}
	return money.MonthlyPayment(l.Amount, l.InterestRate.Decimal, l.DurationMonths)
}

// AnonymizedBorrower is what lenders see instead of the borrower username.
func (l *Loan) AnonymizedBorrower() string {
	r := []rune(l.BorrowerUsername)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r) + "****"
}

// Clone deep-copies the pointer fields so snapshots handed to side effects
// never alias engine state.
func (l Loan) Clone() Loan {
	if l.LenderUsername != nil {
		v := *l.LenderUsername
		l.LenderUsername = &v
	}
	l.FundedAt = cloneTime(l.FundedAt)
	l.ApprovedAt = cloneTime(l.ApprovedAt)
	l.RejectedAt = cloneTime(l.RejectedAt)
	l.Unparsed = maps.Clone(l.Unparsed)
	return l
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// FindIndex returns the position of id in loans or -1.
func FindIndex(loans []Loan, id string) int {
	for i := range loans {
		if loans[i].ID == id {
			return i
		}
	}
	return -1
}

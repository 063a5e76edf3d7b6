package mysql

import (
	"context"
	"fmt"

	"microloan-ledger/internal/domain/errs"
	loanDomain "microloan-ledger/internal/domain/loan"

	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) List(ctx context.Context) ([]loanDomain.Loan, error) {
	out := []loanDomain.Loan{}
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list loans: %v", errs.ErrPersistence, err)
	}
	return out, nil
}

// ReplaceAll swaps the whole loans table inside one db transaction, so a
// failed write leaves the previous collection in place.
func (r *LoanRepository) ReplaceAll(ctx context.Context, loans []loanDomain.Loan) error {
	rows := make([]loanDomain.Loan, len(loans))
	for i := range loans {
		rows[i] = loans[i]
		rows[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&loanDomain.Loan{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("%w: replace loans: %v", errs.ErrPersistence, err)
	}
	return nil
}

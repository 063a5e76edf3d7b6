package mysql

import (
	loanDomain "microloan-ledger/internal/domain/loan"
	userDomain "microloan-ledger/internal/domain/user"

	"gorm.io/gorm"
)

// Migrate creates or updates the loans and users tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&loanDomain.Loan{}, &userDomain.User{})
}

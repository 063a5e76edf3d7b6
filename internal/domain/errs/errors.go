// Package errs is the closed set of failure kinds the ledger reports.
// Callers branch with errors.Is / errors.As, never on message text.
package errs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type kindErr struct {
	msg    string
	parent error
}

func (e *kindErr) Error() string { return e.msg }
func (e *kindErr) Unwrap() error { return e.parent }

func derive(parent error, msg string) error { return &kindErr{msg: msg, parent: parent} }

var (
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("actor is not allowed to perform this operation")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("operation not allowed in current loan status")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidLoanData     = errors.New("loan data contains invalid numerical values")
	ErrPersistence         = errors.New("persistence failure")
	ErrPartialCommit       = errors.New("partial commit")

	ErrLoanNotFound = derive(ErrNotFound, "loan not found")
	ErrUserNotFound = derive(ErrNotFound, "user not found")

	// ErrLoanUnavailable also matches ErrInvalidState.
	ErrLoanUnavailable = derive(ErrInvalidState, "loan is not available for funding")
	// ErrConcurrencyConflict is a lost funding race; it matches ErrLoanUnavailable.
	ErrConcurrencyConflict = derive(ErrLoanUnavailable, "loan was funded by another lender")

	ErrUsernameTaken      = derive(ErrValidation, "username already exists")
	ErrWeakPassword       = derive(ErrValidation, "password does not meet requirements")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Validation wraps ErrValidation with the offending field.
func Validation(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}

// Persistence tags err as ErrPersistence unless it already is one.
func Persistence(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// PartialCommitError means the loan collection was written but the dependent
// balance write was not. The fields are what an operator needs to reconcile.
type PartialCommitError struct {
	Op       string
	LoanID   string
	Username string
	Amount   decimal.Decimal
	Err      error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%s: loan %s committed but balance of %s not adjusted by %s: %v",
		e.Op, e.LoanID, e.Username, e.Amount.StringFixed(2), e.Err)
}

func (e *PartialCommitError) Unwrap() []error { return []error{ErrPartialCommit, e.Err} }

// Kind returns a stable short name for err, used for metrics labels and
// HTTP error codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPartialCommit):
		return "partial_commit"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, ErrLoanUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidLoanData):
		return "invalid_loan_data"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}

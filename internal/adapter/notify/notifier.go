// Package notify delivers borrower-facing notifications and runs every
// post-commit side effect off the request path.
package notify

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
)

type Notifier interface {
	NotifyLoanRequested(ctx context.Context, borrower string, amount decimal.Decimal) error
	NotifyLoanFunded(ctx context.Context, borrower string, amount decimal.Decimal, lender string) error
}

// LogNotifier stands in when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyLoanRequested(_ context.Context, borrower string, amount decimal.Decimal) error {
	log.Printf("notify: not configured, would send loan request received to=%s amount=%s", borrower, amount.StringFixed(2))
	return nil
}

func (LogNotifier) NotifyLoanFunded(_ context.Context, borrower string, amount decimal.Decimal, lender string) error {
	log.Printf("notify: not configured, would send loan funded to=%s amount=%s lender=%s", borrower, amount.StringFixed(2), lender)
	return nil
}

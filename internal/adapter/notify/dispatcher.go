package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"microloan-ledger/internal/adapter/mirror"
	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/infrastructure/metrics"
)

const (
	EventLoanRequest  = "loan_request"
	EventLoanFunded   = "loan_funded"
	EventLoanApproved = "loan_approved"
	EventLoanRejected = "loan_rejected"
)

// Dispatcher implements loan.Events. Each effect runs on its own goroutine
// under a timeout; failures and panics are logged and counted, never returned.
type Dispatcher struct {
	notifier Notifier
	mirror   mirror.Publisher
	timeout  time.Duration
	wg       sync.WaitGroup
}

var _ loan.Events = (*Dispatcher)(nil)

func NewDispatcher(n Notifier, m mirror.Publisher, timeout time.Duration) *Dispatcher {
	if n == nil {
		n = LogNotifier{}
	}
	if m == nil {
		m = mirror.Nop{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{notifier: n, mirror: m, timeout: timeout}
}

func (d *Dispatcher) LoanRequested(l loan.Loan) {
	d.publish(EventLoanRequest, l)
	d.run("notify_loan_requested", func(ctx context.Context) error {
		return d.notifier.NotifyLoanRequested(ctx, l.BorrowerUsername, l.Amount)
	})
}

func (d *Dispatcher) LoanFunded(l loan.Loan) {
	d.publish(EventLoanFunded, l)
	d.run("notify_loan_funded", func(ctx context.Context) error {
		return d.notifier.NotifyLoanFunded(ctx, l.BorrowerUsername, l.Amount, l.Lender())
	})
}

func (d *Dispatcher) LoanApproved(l loan.Loan) { d.publish(EventLoanApproved, l) }
func (d *Dispatcher) LoanRejected(l loan.Loan) { d.publish(EventLoanRejected, l) }

// Wait blocks until every effect started so far has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) publish(eventType string, l loan.Loan) {
	d.run("mirror_"+eventType, func(ctx context.Context) error {
		_, err := d.mirror.Publish(ctx, eventType, l)
		return err
	})
}

func (d *Dispatcher) run(effect string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("dispatch: %s panicked: %v", effect, r)
				metrics.SideEffectFailed(effect)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("dispatch: %s failed: %v", effect, err)
			metrics.SideEffectFailed(effect)
		}
	}()
}

package eventsmock

import (
	"sync"

	"microloan-ledger/internal/domain/loan"
)

type Event struct {
	Name string
	Loan loan.Loan
}

// Recorder satisfies loan.Events by remembering every call.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ loan.Events = (*Recorder)(nil)

func (r *Recorder) record(name string, l loan.Loan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Loan: l})
}

func (r *Recorder) LoanRequested(l loan.Loan) { r.record("loan_request", l) }
func (r *Recorder) LoanFunded(l loan.Loan)    { r.record("loan_funded", l) }
func (r *Recorder) LoanApproved(l loan.Loan)  { r.record("loan_approved", l) }
func (r *Recorder) LoanRejected(l loan.Loan)  { r.record("loan_rejected", l) }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Names() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Name)
	}
	return out
}

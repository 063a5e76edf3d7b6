package loan

// Events receives snapshots of committed transitions. Implementations must
// return quickly; delivery failures are theirs to log.
type Events interface {
	LoanRequested(l Loan)
	LoanFunded(l Loan)
	LoanApproved(l Loan)
	LoanRejected(l Loan)
}

// NopEvents drops everything.
type NopEvents struct{}

func (NopEvents) LoanRequested(Loan) {}
func (NopEvents) LoanFunded(Loan)    {}
func (NopEvents) LoanApproved(Loan)  {}
func (NopEvents) LoanRejected(Loan)  {}

package jsonfile

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/user"
)

// stampLayouts are tried in order. The zone-less forms are what older data
// files carry (ISO timestamps without offset, or "YYYY-MM-DD HH:MM:SS");
// they are read as UTC.
var stampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// stamp is a nullable timestamp as stored on disk.
type stamp struct{ t *time.Time }

func stampOf(t *time.Time) stamp { return stamp{t: t} }

func (s *stamp) UnmarshalJSON(b []byte) error {
	s.t = nil
	if string(b) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			s.t = &t
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}

func (s stamp) MarshalJSON() ([]byte, error) {
	if s.t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.t.UTC().Format(time.RFC3339Nano))
}

func (s stamp) value() time.Time {
	if s.t == nil {
		return time.Time{}
	}
	return *s.t
}

// decodeNumber accepts a JSON number or a numeric string. Missing and null
// read as zero.
func decodeNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, true
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// loanRecord is a loan as it sits in loans.json. Amount and duration stay raw
// so one unreadable record does not make the whole collection unreadable.
type loanRecord struct {
	ID               string              `json:"id"`
	BorrowerUsername string              `json:"borrower_username"`
	LenderUsername   *string             `json:"lender_username"`
	Amount           json.RawMessage     `json:"amount"`
	DurationMonths   json.RawMessage     `json:"duration_months"`
	Status           loan.Status         `json:"status"`
	InterestRate     decimal.NullDecimal `json:"interest_rate"`
	InterestAmount   decimal.NullDecimal `json:"interest_amount"`
	TotalRepayment   decimal.NullDecimal `json:"total_repayment"`
	Description      string              `json:"description"`
	ProofOfIncomeRef string              `json:"proof_of_income"`
	CreatedAt        stamp               `json:"created_at"`
	FundedAt         stamp               `json:"funded_at"`
	ApprovedAt       stamp               `json:"approved_at"`
	RejectedAt       stamp               `json:"rejected_at"`
}

func (r loanRecord) toLoan() loan.Loan {
	l := loan.Loan{
		ID:               r.ID,
		BorrowerUsername: r.BorrowerUsername,
		LenderUsername:   r.LenderUsername,
		Status:           r.Status,
		InterestRate:     r.InterestRate,
		InterestAmount:   r.InterestAmount,
		TotalRepayment:   r.TotalRepayment,
		Description:      r.Description,
		ProofOfIncomeRef: r.ProofOfIncomeRef,
		CreatedAt:        r.CreatedAt.value(),
		FundedAt:         r.FundedAt.t,
		ApprovedAt:       r.ApprovedAt.t,
		RejectedAt:       r.RejectedAt.t,
	}
	unparsed := func(field string, raw json.RawMessage) {
		if l.Unparsed == nil {
			l.Unparsed = map[string]string{}
		}
		l.Unparsed[field] = string(raw)
	}

	if d, ok := decodeNumber(r.Amount); ok {
		l.Amount = d
	} else {
		unparsed("amount", r.Amount)
	}
	if d, ok := decodeNumber(r.DurationMonths); ok && d.IsInteger() {
		l.DurationMonths = int(d.IntPart())
	} else {
		unparsed("duration_months", r.DurationMonths)
	}
	if len(l.Unparsed) > 0 {
		fields := make([]string, 0, len(l.Unparsed))
		for f := range l.Unparsed {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		log.Printf("jsonfile: loan id=%s has non-numeric fields=%v", l.ID, fields)
	}
	return l
}

func loanToRecord(l loan.Loan) (loanRecord, error) {
	r := loanRecord{
		ID:               l.ID,
		BorrowerUsername: l.BorrowerUsername,
		LenderUsername:   l.LenderUsername,
		Status:           l.Status,
		InterestRate:     l.InterestRate,
		InterestAmount:   l.InterestAmount,
		TotalRepayment:   l.TotalRepayment,
		Description:      l.Description,
		ProofOfIncomeRef: l.ProofOfIncomeRef,
		CreatedAt:        stampOf(&l.CreatedAt),
		FundedAt:         stampOf(l.FundedAt),
		ApprovedAt:       stampOf(l.ApprovedAt),
		RejectedAt:       stampOf(l.RejectedAt),
	}
	if raw, ok := l.Unparsed["amount"]; ok {
		r.Amount = json.RawMessage(raw)
	} else {
		b, err := l.Amount.MarshalJSON()
		if err != nil {
			return loanRecord{}, err
		}
		r.Amount = b
	}
	if raw, ok := l.Unparsed["duration_months"]; ok {
		r.DurationMonths = json.RawMessage(raw)
	} else {
		r.DurationMonths = json.RawMessage(strconv.Itoa(l.DurationMonths))
	}
	return r, nil
}

// userRecord is a user as it sits in users.json. Older admin seeds wrote the
// hash under "password".
type userRecord struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	PasswordHash   string          `json:"password_hash"`
	LegacyPassword string          `json:"password,omitempty"`
	Role           user.Role       `json:"role"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      stamp           `json:"created_at"`
}

func (r userRecord) toUser() user.User {
	hash := r.PasswordHash
	if hash == "" {
		hash = r.LegacyPassword
	}
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: hash,
		Role:         r.Role,
		Balance:      r.Balance,
		CreatedAt:    r.CreatedAt.value(),
	}
}

func userToRecord(u user.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Balance:      u.Balance,
		CreatedAt:    stampOf(&u.CreatedAt),
	}
}

package id

import "github.com/google/uuid"

// NewLoanID returns a random (v4) UUID in canonical hyphenated form.
func NewLoanID() string {
	return uuid.NewString()
}

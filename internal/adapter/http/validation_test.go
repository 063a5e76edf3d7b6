package http

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyValidation(t *testing.T) {
	type P struct {
		Amount decimal.Decimal `json:"amount" validate:"money"`
	}
	cv := NewValidator()

	for _, s := range []string{"0.01", "500", "1234.5", "99.99"} {
		if err := cv.Validate(P{Amount: decimal.RequireFromString(s)}); err != nil {
			t.Fatalf("expected money OK for %s, got %v", s, err)
		}
	}
	for _, s := range []string{"0", "-1", "10.005", "0.001"} {
		err := cv.Validate(P{Amount: decimal.RequireFromString(s)})
		if err == nil {
			t.Fatalf("expected money error for %s", s)
		}
		if !containsFieldMsg(ToFieldErrors(err), "amount", "at most 2 decimal places") {
			t.Fatalf("expected money message for %s, got %+v", s, ToFieldErrors(err))
		}
	}
}

func TestUsernameValidation(t *testing.T) {
	type P struct {
		Username string `validate:"username"`
	}
	cv := NewValidator()

	if err := cv.Validate(P{Username: "lena_99"}); err != nil {
		t.Fatalf("expected valid username, got %v", err)
	}
	for _, s := range []string{"", "two words", "tab\there", "new\nline"} {
		err := cv.Validate(P{Username: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if !containsFieldMsg(ToFieldErrors(err), "Username", "whitespace") {
			t.Fatalf("expected whitespace message for %q, got %+v", s, ToFieldErrors(err))
		}
	}
}

func TestSelfRoleValidation(t *testing.T) {
	type P struct {
		Role string `json:"role" validate:"selfrole"`
	}
	cv := NewValidator()

	for _, r := range []string{"", "borrower", "lender"} {
		if err := cv.Validate(P{Role: r}); err != nil {
			t.Fatalf("expected role %q OK, got %v", r, err)
		}
	}
	for _, r := range []string{"admin", "Lender", "root"} {
		err := cv.Validate(P{Role: r})
		if err == nil {
			t.Fatalf("expected role error for %q", r)
		}
		if !containsFieldMsg(ToFieldErrors(err), "role", "borrower or lender") {
			t.Fatalf("got %+v", ToFieldErrors(err))
		}
	}
}

func TestToFieldErrors_Messages(t *testing.T) {
	type P struct {
		Name   string `json:"name" validate:"required"`
		Months int    `json:"months" validate:"gte=1,lte=360"`
		Note   string `json:"note" validate:"max=3"`
	}
	cv := NewValidator()

	fe := ToFieldErrors(cv.Validate(P{Months: 400, Note: "toolong"}))
	if !containsFieldMsg(fe, "name", "is required") ||
		!containsFieldMsg(fe, "months", "less than or equal to 360") ||
		!containsFieldMsg(fe, "note", "at most 3 characters") {
		t.Fatalf("unexpected field errors: %+v", fe)
	}

	fe = ToFieldErrors(cv.Validate(P{Name: "x", Months: 0}))
	if !containsFieldMsg(fe, "months", "greater than or equal to 1") {
		t.Fatalf("unexpected field errors: %+v", fe)
	}
}

func TestToFieldErrors_NonValidatorError(t *testing.T) {
	fe := ToFieldErrors(errors.New("boom"))
	if len(fe) != 1 || fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("got %+v", fe)
	}
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-ledger/internal/domain/errs"
)

// statusFor is the single place ledger error kinds become HTTP codes.
func statusFor(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "invalid_credentials":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict", "unavailable", "invalid_state":
		return http.StatusConflict
	case "insufficient_balance", "invalid_loan_data":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	kind := errs.Kind(err)
	code := statusFor(kind)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("http: %s %s failed kind=%s: %v", c.Request().Method, c.Path(), kind, err)
		var pce *errs.PartialCommitError
		if errors.As(err, &pce) {
			msg = "loan " + pce.LoanID + " was updated but the balance change was not saved; an operator has been alerted"
		} else {
			msg = "internal error"
		}
	}
	return c.JSON(code, ErrorResponse{Error: msg, Code: kind})
}

func badRequest(c echo.Context, msg string, details []FieldError) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "validation", Details: details})
}

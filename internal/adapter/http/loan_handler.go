package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"microloan-ledger/internal/adapter/middleware"
	domainLoan "microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/usecase/approval"
	"microloan-ledger/internal/usecase/funding"
	"microloan-ledger/internal/usecase/loan"
	"microloan-ledger/internal/usecase/stats"
)

type LoanHandler struct {
	loans    *loan.Usecase
	funding  *funding.Usecase
	approval *approval.Usecase
	stats    *stats.Usecase
}

func NewLoanHandler(l *loan.Usecase, f *funding.Usecase, a *approval.Usecase, s *stats.Usecase) *LoanHandler {
	return &LoanHandler{loans: l, funding: f, approval: a, stats: s}
}

type createLoanReq struct {
	Amount         decimal.Decimal `json:"amount" validate:"money"`
	DurationMonths int             `json:"duration_months" validate:"required,gte=1,lte=360"`
	Description    string          `json:"description" validate:"max=2000"`
	ProofOfIncome  string          `json:"proof_of_income" validate:"max=512"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	a, _ := middleware.ActorFrom(c)
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed", ToFieldErrors(err))
	}
	l, err := h.loans.CreateLoanRequest(c.Request().Context(), a, loan.CreateLoanInput{
		Amount:           req.Amount,
		DurationMonths:   req.DurationMonths,
		Description:      req.Description,
		ProofOfIncomeRef: req.ProofOfIncome,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// ListLoans is the admin's full view.
func (h *LoanHandler) ListLoans(c echo.Context) error {
	if _, ok := requireRole(c, user.RoleAdmin); !ok {
		return forbidden(c)
	}
	loans, err := h.loans.ListLoans(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.loans.Details(loans))
}

// AvailableLoans is the lender dashboard.
func (h *LoanHandler) AvailableLoans(c echo.Context) error {
	if _, ok := requireRole(c, user.RoleLender); !ok {
		return forbidden(c)
	}
	views, err := h.loans.AvailableLoans(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *LoanHandler) MyLoans(c echo.Context) error {
	a, _ := middleware.ActorFrom(c)
	loans, err := h.loans.GetUserLoans(c.Request().Context(), a.Username, a.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.loans.Details(loans))
}

// GetLoan: admins see any loan, borrowers and lenders only their own.
func (h *LoanHandler) GetLoan(c echo.Context) error {
	a, _ := middleware.ActorFrom(c)
	l, err := h.loans.GetLoan(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	if !canView(a.Username, a.Role, l) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, h.loans.Detail(*l))
}

func canView(username string, role user.Role, l *domainLoan.Loan) bool {
	switch role {
	case user.RoleAdmin:
		return true
	case user.RoleBorrower:
		return l.BorrowerUsername == username
	case user.RoleLender:
		return l.Lender() == username
	}
	return false
}

func (h *LoanHandler) FundLoan(c echo.Context) error {
	a, _ := middleware.ActorFrom(c)
	l, err := h.funding.FundLoan(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) ApproveLoan(c echo.Context) error {
	a, _ := middleware.ActorFrom(c)
	l, err := h.approval.ApproveLoan(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) RejectLoan(c echo.Context) error {
	a, _ := middleware.ActorFrom(c)
	l, err := h.approval.RejectLoan(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) Stats(c echo.Context) error {
	if _, ok := requireRole(c, user.RoleAdmin); !ok {
		return forbidden(c)
	}
	s, err := h.stats.GetLoanStats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

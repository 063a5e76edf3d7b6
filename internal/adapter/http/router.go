package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"microloan-ledger/internal/adapter/middleware"
	"microloan-ledger/internal/domain/identity"
	"microloan-ledger/internal/usecase/approval"
	"microloan-ledger/internal/usecase/funding"
	"microloan-ledger/internal/usecase/loan"
	"microloan-ledger/internal/usecase/stats"
	useruc "microloan-ledger/internal/usecase/user"
)

type Deps struct {
	Loans    *loan.Usecase
	Funding  *funding.Usecase
	Approval *approval.Usecase
	Stats    *stats.Usecase
	Users    *useruc.Usecase

	// Redis nil disables idempotency on mutating routes.
	Redis          redis.Cmdable
	IdempotencyTTL time.Duration

	Metrics http.Handler
	Events  EventReader
}

// UserResolver adapts the user store to the Actor middleware.
func UserResolver(users *useruc.Usecase) middleware.Resolver {
	return func(ctx context.Context, username string) (identity.Actor, error) {
		u, err := users.Get(ctx, username)
		if err != nil {
			return identity.Actor{}, err
		}
		return identity.Actor{Username: u.Username, Role: u.Role}, nil
	}
}

func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	h := NewHandler(d.Events)
	uh := NewUserHandler(d.Users)
	lh := NewLoanHandler(d.Loans, d.Funding, d.Approval, d.Stats)

	auth := []echo.MiddlewareFunc{middleware.Actor(UserResolver(d.Users))}
	write := auth
	if d.Redis != nil {
		write = append(append([]echo.MiddlewareFunc{}, auth...), middleware.Idempotency(d.Redis, d.IdempotencyTTL))
	}

	// routes
	e.GET("/health", h.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	e.POST("/users", uh.Register)
	e.POST("/login", uh.Login)
	e.GET("/me", uh.Me, auth...)

	e.POST("/loans", lh.CreateLoan, write...)
	e.GET("/loans", lh.ListLoans, auth...)
	e.GET("/loans/available", lh.AvailableLoans, auth...)
	e.GET("/loans/mine", lh.MyLoans, auth...)
	e.GET("/loans/:loan_id", lh.GetLoan, auth...)
	e.POST("/loans/:loan_id/fund", lh.FundLoan, write...)
	e.POST("/loans/:loan_id/approve", lh.ApproveLoan, write...)
	e.POST("/loans/:loan_id/reject", lh.RejectLoan, write...)

	e.GET("/stats", lh.Stats, auth...)
	e.GET("/ledger/events", h.LedgerEvents, auth...)
	return e
}

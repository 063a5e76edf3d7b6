package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/user"
)

func TestLoanRepository_MissingFileIsEmpty(t *testing.T) {
	repo := NewLoanRepository(t.TempDir())
	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestLoanRepository_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	repo := NewLoanRepository(dir)
	ctx := context.Background()

	created := time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)
	pending := loan.Loan{
		ID: "a", BorrowerUsername: "bob", Amount: decimal.RequireFromString("500.00"),
		DurationMonths: 6, Status: loan.StatusPending, CreatedAt: created, Description: "seed",
	}
	funded := loan.Loan{
		ID: "b", BorrowerUsername: "bob", Amount: decimal.NewFromInt(1000),
		DurationMonths: 12, Status: loan.StatusPending, CreatedAt: created,
	}
	funded.ApplyFunding(loan.NewFunding("lena", funded.Amount, 12, decimal.NewFromInt(10), created.Add(time.Hour)))

	if err := repo.ReplaceAll(ctx, []loan.Loan{pending, funded}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if got[0].HasFunding() {
		t.Fatalf("pending loan gained funding fields: %+v", got[0])
	}
	if !got[0].Amount.Equal(pending.Amount) || !got[0].CreatedAt.Equal(created) {
		t.Fatalf("pending loan changed: %+v", got[0])
	}
	if got[1].Lender() != "lena" || got[1].TotalRepayment.Decimal.StringFixed(2) != "1100.00" {
		t.Fatalf("funded loan changed: %+v", got[1])
	}
	if got[1].Position != 1 {
		t.Fatalf("position = %d, want 1", got[1].Position)
	}
}

func TestLoanRepository_CorruptFileIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LoansFile), []byte(`[{"id":`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoanRepository(dir).List(context.Background())
	if !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
}

func TestUserRepository_RoundTrip(t *testing.T) {
	repo := NewUserRepository(t.TempDir())
	ctx := context.Background()
	in := []user.User{
		{ID: 1, Username: "lena", Role: user.RoleLender, Balance: decimal.NewFromInt(1000), CreatedAt: time.Unix(0, 0).UTC()},
		{ID: 2, Username: "bob", Role: user.RoleBorrower, Balance: decimal.Zero},
	}
	if err := repo.ReplaceAll(ctx, in); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Username != "lena" || !got[0].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected users: %+v", got)
	}
}

func TestWrite_UnwritableDirIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// data dir path runs through a regular file, so MkdirAll fails
	repo := NewUserRepository(filepath.Join(blocker, "data"))
	if err := repo.ReplaceAll(context.Background(), nil); !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
}

package mysql

import (
	"context"
	"errors"
	"testing"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/identity"
	domain "microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/uow"
	userDomain "microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/usecase/funding"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func seed(t *testing.T, db *gorm.DB, loans []domain.Loan, users []userDomain.User) {
	t.Helper()
	ctx := context.Background()
	if err := NewLoanRepository(db).ReplaceAll(ctx, loans); err != nil {
		t.Fatalf("seed loans: %v", err)
	}
	if err := NewUserRepository(db).ReplaceAll(ctx, users); err != nil {
		t.Fatalf("seed users: %v", err)
	}
}

// failUserInserts makes every insert into the users table fail from now on.
func failUserInserts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_users", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			tx.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

var lender = userDomain.User{ID: 1, Username: "lena", PasswordHash: "h", Role: userDomain.RoleLender, Balance: decimal.NewFromInt(1000)}

func TestUoW_CommitsBothCollections(t *testing.T) {
	db := openTestDB(t)
	l := makeLoan("bob", 500, 6)
	seed(t, db, []domain.Loan{l}, []userDomain.User{lender})

	tx := NewUoW(db)
	uc := funding.NewUsecase(tx, nil, decimal.Zero)
	if _, err := uc.FundLoan(context.Background(), identity.Actor{Username: "lena", Role: userDomain.RoleLender}, l.ID); err != nil {
		t.Fatalf("FundLoan: %v", err)
	}

	loans, _ := tx.Repos().Loans.List(context.Background())
	users, _ := tx.Repos().Users.List(context.Background())
	if loans[0].Status != domain.StatusApprovedByLender {
		t.Fatalf("status = %s", loans[0].Status)
	}
	if !users[0].Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s", users[0].Balance)
	}
}

func TestUoW_FailedDebitRollsBackLoanWrite(t *testing.T) {
	db := openTestDB(t)
	l := makeLoan("bob", 500, 6)
	seed(t, db, []domain.Loan{l}, []userDomain.User{lender})
	failUserInserts(t, db)

	tx := NewUoW(db)
	uc := funding.NewUsecase(tx, nil, decimal.Zero)
	_, err := uc.FundLoan(context.Background(), identity.Actor{Username: "lena", Role: userDomain.RoleLender}, l.ID)
	if !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
	if errors.Is(err, errs.ErrPartialCommit) {
		t.Fatalf("rolled back write reported as partial commit: %v", err)
	}

	loans, err := tx.Repos().Loans.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(loans) != 1 || loans[0].Status != domain.StatusPending || loans[0].HasFunding() {
		t.Fatalf("loan write should have been rolled back: %+v", loans)
	}
	users, err := tx.Repos().Users.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || !users[0].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("users = %+v", users)
	}
}

func TestUoW_ErrorFromFnRollsBack(t *testing.T) {
	db := openTestDB(t)
	seed(t, db, []domain.Loan{makeLoan("bob", 100, 1)}, nil)
	boom := errors.New("boom")

	tx := NewUoW(db)
	err := tx.WithinTx(context.Background(), func(r uow.Repos) error {
		if err := r.Loans.ReplaceAll(context.Background(), nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	loans, _ := tx.Repos().Loans.List(context.Background())
	if len(loans) != 1 {
		t.Fatalf("loans = %d, want 1 after rollback", len(loans))
	}
}

func TestUoW_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewUoW(openTestDB(t)).WithinTx(ctx, func(uow.Repos) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}

package mysql

import (
	"context"
	"testing"
	"time"

	userDomain "microloan-ledger/internal/domain/user"

	"github.com/shopspring/decimal"
)

func TestUserRepository_ReplaceAllAndList(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	users := []userDomain.User{
		{ID: 2, Username: "bob", PasswordHash: "h", Role: userDomain.RoleBorrower, Balance: decimal.Zero, CreatedAt: now},
		{ID: 1, Username: "lena", PasswordHash: "h", Role: userDomain.RoleLender, Balance: decimal.RequireFromString("1000.00"), CreatedAt: now},
	}
	if err := repo.ReplaceAll(ctx, users); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Username != "lena" || got[1].Username != "bob" {
		t.Fatalf("want users ordered by id, got %+v", got)
	}
	if !got[0].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance = %s", got[0].Balance)
	}

	// debit and persist
	got[0].Balance = got[0].Balance.Sub(decimal.NewFromInt(250))
	if err := repo.ReplaceAll(ctx, got); err != nil {
		t.Fatalf("ReplaceAll #2: %v", err)
	}
	again, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List #2: %v", err)
	}
	if !again[0].Balance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("balance after debit = %s, want 750", again[0].Balance)
	}
}

// Package jsonfile keeps each collection as one JSON array on disk.
// Writes go to a temp file in the same directory and are renamed into place.
// Reads accept the older on-disk shapes: float amounts, zone-less
// timestamps, and loans whose amount or duration is not a number (those are
// kept, flagged, and written back as found).
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/user"
)

const (
	LoansFile = "loans.json"
	UsersFile = "users.json"
)

func readCollection[T any](path string) ([]T, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrPersistence, path, err)
	}
	if len(b) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		log.Printf("jsonfile: corrupt collection path=%s err=%v", path, err)
		return nil, fmt.Errorf("%w: decode %s: %v", errs.ErrPersistence, path, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func writeCollection[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", errs.ErrPersistence, path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", errs.ErrPersistence, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", errs.ErrPersistence, path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", errs.ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %v", errs.ErrPersistence, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", errs.ErrPersistence, path, err)
	}
	return nil
}

type LoanRepository struct{ path string }

func NewLoanRepository(dataDir string) *LoanRepository {
	return &LoanRepository{path: filepath.Join(dataDir, LoansFile)}
}

func (r *LoanRepository) List(ctx context.Context) ([]loan.Loan, error) {
	recs, err := readCollection[loanRecord](r.path)
	if err != nil {
		return nil, err
	}
	loans := make([]loan.Loan, len(recs))
	for i, rec := range recs {
		loans[i] = rec.toLoan()
		loans[i].Position = i
	}
	return loans, nil
}

func (r *LoanRepository) ReplaceAll(ctx context.Context, loans []loan.Loan) error {
	recs := make([]loanRecord, len(loans))
	for i, l := range loans {
		rec, err := loanToRecord(l)
		if err != nil {
			return fmt.Errorf("%w: encode loan %s: %v", errs.ErrPersistence, l.ID, err)
		}
		recs[i] = rec
	}
	return writeCollection(r.path, recs)
}

type UserRepository struct{ path string }

func NewUserRepository(dataDir string) *UserRepository {
	return &UserRepository{path: filepath.Join(dataDir, UsersFile)}
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	recs, err := readCollection[userRecord](r.path)
	if err != nil {
		return nil, err
	}
	users := make([]user.User, len(recs))
	for i, rec := range recs {
		users[i] = rec.toUser()
	}
	return users, nil
}

func (r *UserRepository) ReplaceAll(ctx context.Context, users []user.User) error {
	recs := make([]userRecord, len(users))
	for i, u := range users {
		recs[i] = userToRecord(u)
	}
	return writeCollection(r.path, recs)
}

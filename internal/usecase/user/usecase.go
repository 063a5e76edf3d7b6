package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/uow"
	domain "microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/infrastructure/metrics"
)

const (
	DefaultAdminUsername = "admin"
	maxUsernameLen       = 64
)

var (
	DefaultLenderBalance = decimal.NewFromInt(1000)
	ResetAdminBalance    = decimal.NewFromInt(10000)
)

type Usecase struct {
	uow           uow.UnitOfWork
	lenderBalance decimal.Decimal
	cost          int
	now           func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, lenderBalance decimal.Decimal) *Usecase {
	if lenderBalance.IsNegative() {
		lenderBalance = DefaultLenderBalance
	}
	return &Usecase{
		uow:           tx,
		lenderBalance: lenderBalance,
		cost:          bcrypt.DefaultCost,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func (u *Usecase) WithCost(cost int) *Usecase {
	u.cost = cost
	return u
}

// CheckPassword: at least 8 characters with an uppercase letter and a digit.
func CheckPassword(p string) error {
	if len(p) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters", errs.ErrWeakPassword)
	}
	var upper, digit bool
	for _, r := range p {
		upper = upper || unicode.IsUpper(r)
		digit = digit || unicode.IsDigit(r)
	}
	if !upper {
		return fmt.Errorf("%w: must contain an uppercase letter", errs.ErrWeakPassword)
	}
	if !digit {
		return fmt.Errorf("%w: must contain a digit", errs.ErrWeakPassword)
	}
	return nil
}

func checkUsername(name string) error {
	switch {
	case name == "":
		return errs.Validation("username", "required")
	case len(name) > maxUsernameLen:
		return errs.Validation("username", "too long")
	case strings.TrimSpace(name) != name || strings.ContainsAny(name, " \t\r\n"):
		return errs.Validation("username", "must not contain whitespace")
	}
	return nil
}

func (u *Usecase) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	out, err := u.register(ctx, in)
	metrics.Observe("register", err)
	return out, err
}

func (u *Usecase) register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleBorrower
	}
	if in.Role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", errs.ErrForbidden)
	}
	if !in.Role.Valid() {
		return nil, errs.Validation("role", "must be borrower or lender")
	}
	if err := checkUsername(in.Username); err != nil {
		return nil, err
	}
	if err := CheckPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := u.hash(in.Password)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if in.Role == domain.RoleLender {
		balance = u.lenderBalance
	}

	var created domain.User
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		users, err := r.Users.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		if domain.FindIndex(users, in.Username) >= 0 {
			return fmt.Errorf("%w: %s", errs.ErrUsernameTaken, in.Username)
		}
		created = domain.User{
			ID:           domain.NextID(users),
			Username:     in.Username,
			PasswordHash: hash,
			Role:         in.Role,
			Balance:      balance,
			CreatedAt:    u.now(),
		}
		return errs.Persistence(r.Users.ReplaceAll(ctx, append(users, created)))
	})
	if err != nil {
		return nil, err
	}
	log.Printf("user: registered username=%s role=%s", created.Username, created.Role)
	return &created, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown user or a wrong
// password alike.
func (u *Usecase) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	usr, err := u.Get(ctx, username)
	if errors.Is(err, errs.ErrUserNotFound) {
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	return usr, nil
}

func (u *Usecase) Get(ctx context.Context, username string) (*domain.User, error) {
	users, err := u.List(ctx)
	if err != nil {
		return nil, err
	}
	i := domain.FindIndex(users, username)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrUserNotFound, username)
	}
	return &users[i], nil
}

func (u *Usecase) List(ctx context.Context) ([]domain.User, error) {
	users, err := u.uow.Repos().Users.List(ctx)
	if err != nil {
		return nil, errs.Persistence(err)
	}
	return users, nil
}

// EnsureAdmin promotes username to admin with a new password, creating the
// account if needed. An existing balance is kept.
func (u *Usecase) EnsureAdmin(ctx context.Context, username, password string) (*domain.User, bool, error) {
	if username == "" {
		username = DefaultAdminUsername
	}
	if err := checkUsername(username); err != nil {
		return nil, false, err
	}
	if err := CheckPassword(password); err != nil {
		return nil, false, err
	}
	hash, err := u.hash(password)
	if err != nil {
		return nil, false, err
	}

	var (
		out     domain.User
		created bool
	)
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		users, err := r.Users.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		if i := domain.FindIndex(users, username); i >= 0 {
			users[i].Role = domain.RoleAdmin
			users[i].PasswordHash = hash
			out = users[i]
		} else {
			out = domain.User{
				ID:           domain.NextID(users),
				Username:     username,
				PasswordHash: hash,
				Role:         domain.RoleAdmin,
				Balance:      decimal.Zero,
				CreatedAt:    u.now(),
			}
			users = append(users, out)
			created = true
		}
		return errs.Persistence(r.Users.ReplaceAll(ctx, users))
	})
	if err != nil {
		return nil, false, err
	}
	log.Printf("user: ensured admin username=%s created=%t", out.Username, created)
	return &out, created, nil
}

// ResetAdmins drops every admin account and adds the default one with
// ResetAdminBalance.
func (u *Usecase) ResetAdmins(ctx context.Context, password string) (*domain.User, error) {
	if password == "" {
		return nil, errs.Validation("password", "required")
	}
	hash, err := u.hash(password)
	if err != nil {
		return nil, err
	}

	var out domain.User
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		users, err := r.Users.List(ctx)
		if err != nil {
			return errs.Persistence(err)
		}
		next := domain.NextID(users)
		kept := users[:0]
		for _, usr := range users {
			if usr.Role != domain.RoleAdmin && usr.Username != DefaultAdminUsername {
				kept = append(kept, usr)
			}
		}
		out = domain.User{
			ID:           next,
			Username:     DefaultAdminUsername,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			Balance:      ResetAdminBalance,
			CreatedAt:    u.now(),
		}
		return errs.Persistence(r.Users.ReplaceAll(ctx, append(kept, out)))
	})
	if err != nil {
		return nil, err
	}
	log.Printf("user: admin accounts reset username=%s", out.Username)
	return &out, nil
}

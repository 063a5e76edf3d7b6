package user

import (
	"time"

	"github.com/shopspring/decimal"

	domain "microloan-ledger/internal/domain/user"
)

type RegisterInput struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UserDTO is a user without the password hash.
type UserDTO struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Role      domain.Role     `json:"role"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

func ToDTO(u domain.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Role: u.Role, Balance: u.Balance, CreatedAt: u.CreatedAt}
}

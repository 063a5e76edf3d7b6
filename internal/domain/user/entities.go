package user

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBorrower Role = "borrower"
	RoleLender   Role = "lender"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleBorrower || r == RoleLender || r == RoleAdmin
}

// Table: users
type User struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Username     string          `gorm:"column:username;size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string          `gorm:"column:password_hash;size:255;not null" json:"password_hash"`
	Role         Role            `gorm:"column:role;size:16;not null" json:"role"`
	Balance      decimal.Decimal `gorm:"column:balance;type:decimal(18,2);not null" json:"balance"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null" json:"created_at"`
}

func (User) TableName() string { return "users" }

// NextID is max existing id + 1.
func NextID(users []User) int64 {
	var max int64
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}

// FindIndex returns the index of username in users or -1.
func FindIndex(users []User, username string) int {
	for i := range users {
		if users[i].Username == username {
			return i
		}
	}
	return -1
}

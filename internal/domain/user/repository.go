package user

import "context"

// Repository reads and replaces the whole user collection.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	ReplaceAll(ctx context.Context, users []User) error
}

package mysql

import (
	"context"
	"fmt"

	"microloan-ledger/internal/domain/errs"
	userDomain "microloan-ledger/internal/domain/user"

	"gorm.io/gorm"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) List(ctx context.Context) ([]userDomain.User, error) {
	out := []userDomain.User{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list users: %v", errs.ErrPersistence, err)
	}
	return out, nil
}

func (r *UserRepository) ReplaceAll(ctx context.Context, users []userDomain.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&userDomain.User{}).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		return tx.CreateInBatches(users, 200).Error
	})
	if err != nil {
		return fmt.Errorf("%w: replace users: %v", errs.ErrPersistence, err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// UnitOfWork groups store writes so a position snapshot is replaced
// atomically or not at all.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{
		db: db,
	}
}

// Run commits when fn returns nil and rolls back on error or panic.
func (u *unitOfWork) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := u.db.WithContext(ctx).Transaction(fn); err != nil {
		return fmt.Errorf("position transaction failed: %w", err)
	}
	return nil
}

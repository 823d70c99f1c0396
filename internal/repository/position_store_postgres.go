package repository

import (
	"context"
	"fmt"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type postgresPositionStore struct {
	db  *gorm.DB
	uow UnitOfWork
}

// NewPostgresPositionStore stores one row per symbol in the positions table
// created by the migrations.
func NewPostgresPositionStore(db *gorm.DB) contract.PositionStore {
	return &postgresPositionStore{
		db:  db,
		uow: NewUnitOfWork(db),
	}
}

func (s *postgresPositionStore) Load(ctx context.Context) (map[string]*model.Position, error) {
	var rows []model.Position
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	positions := make(map[string]*model.Position, len(rows))
	for i := range rows {
		positions[rows[i].Symbol] = &rows[i]
	}
	return positions, nil
}

// Save replaces the table contents with positions in one transaction.
func (s *postgresPositionStore) Save(ctx context.Context, positions map[string]*model.Position) error {
	symbols := make([]string, 0, len(positions))
	rows := make([]model.Position, 0, len(positions))
	for symbol, p := range positions {
		symbols = append(symbols, symbol)
		rows = append(rows, *p)
	}

	return s.uow.Run(ctx, func(tx *gorm.DB) error {
		del := tx.Where("1 = 1")
		if len(symbols) > 0 {
			del = tx.Where("symbol NOT IN ?", symbols)
		}
		if err := del.Delete(&model.Position{}).Error; err != nil {
			return fmt.Errorf("failed to delete closed positions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to upsert positions: %w", err)
		}
		return nil
	})
}

func (s *postgresPositionStore) Sync(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *postgresPositionStore) Close() error {
	return nil
}

// Package signals provides database access to persisted strategy signals
// and backtest results.
package signals

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strongk-quant/database"
	models "strongk-quant/database/models_pkg"
)

// Repository handles database operations for strategy signals
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new signals repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveSignals persists a batch of strategy signals. Conflicts on signal_id
// are ignored so a re-run over the same bars does not duplicate signals.
func (r *Repository) SaveSignals(ctx context.Context, sigs []models.StrategySignal) error {
	if len(sigs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signal_id"}},
		DoNothing: true,
	}).Create(&sigs).Error
	if err != nil {
		return fmt.Errorf("SaveSignals: %w", err)
	}
	return nil
}

// GetSignals retrieves signals with filters, newest first
func (r *Repository) GetSignals(ctx context.Context, symbol, strategy, action string, startTime, endTime time.Time, limit int) ([]models.StrategySignal, error) {
	var sigs []models.StrategySignal
	query := r.db.WithContext(ctx).Order("generated_at DESC")

	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}
	if strategy != "" {
		query = query.Where("strategy = ?", strategy)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if !startTime.IsZero() {
		query = query.Where("generated_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("generated_at <= ?", endTime)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&sigs).Error; err != nil {
		return nil, database.WrapDBError("GetSignals", err)
	}
	return sigs, nil
}

// SaveBacktest persists a run summary and its trades in one transaction.
// A duplicate run_id is ignored so re-saving the same result is harmless.
func (r *Repository) SaveBacktest(ctx context.Context, run models.BacktestRun, trades []models.BacktestTrade) error {
	if run.RunID == "" {
		return database.NewValidationError("run_id", "must not be empty")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoNothing: true,
		}).Create(&run).Error; err != nil {
			return fmt.Errorf("SaveBacktest: run: %w", err)
		}
		if len(trades) == 0 {
			return nil
		}
		if err := tx.Create(&trades).Error; err != nil {
			return fmt.Errorf("SaveBacktest: trades: %w", err)
		}
		return nil
	})
}


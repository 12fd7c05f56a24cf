// Package indicators provides database access to computed technical
// indicator records.
package indicators

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strongk-quant/cache"
	models "strongk-quant/database/models_pkg"
)

// completeDateTTL bounds staleness of the cached latest-complete-date; the
// cache is also invalidated on every upsert for the symbol.
const completeDateTTL = time.Hour

// indicatorColumns lists every nullable indicator column. A record is only
// considered complete when all of them are non-null; incremental computation
// resumes from the latest complete record.
var indicatorColumns = []string{
	"cci", "rsi",
	"macd_line", "macd_signal", "macd_hist",
	"kdj_k", "kdj_d", "kdj_j",
	"boll_upper", "boll_middle", "boll_lower",
}

// Repository handles database operations for indicator records
type Repository struct {
	db    *gorm.DB
	cache *cache.RedisClient
}

// NewRepository creates a new indicators repository. The cache may be nil,
// in which case the latest-complete-date lookup always hits the database.
func NewRepository(db *gorm.DB, redisClient *cache.RedisClient) *Repository {
	return &Repository{db: db, cache: redisClient}
}

// UpsertRecords writes a batch of indicator records keyed by (symbol, date).
// Re-running the same batch overwrites with identical values, so incremental
// recomputation is safe to repeat.
func (r *Repository) UpsertRecords(ctx context.Context, records []models.IndicatorRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(append([]string{"cci_period", "cci_constant"}, indicatorColumns...)),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("UpsertRecords: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, completeDateKey(records[0].Symbol))
	}
	return nil
}

func completeDateKey(symbol string) string {
	return fmt.Sprintf("indicators:last_complete:%s", symbol)
}

// LatestDate returns the most recent record date for a symbol, complete or
// not. The second return value is false when the symbol has no records.
func (r *Repository) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var rec models.IndicatorRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LatestDate: %w", err)
	}
	return rec.Date, true, nil
}

// LatestCompleteDate returns the most recent date for which every indicator
// column is populated. Dates after it may exist with partial values, for
// example when history was too short for the longer windows; those dates are
// recomputed on the next incremental run.
func (r *Repository) LatestCompleteDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	if r.cache != nil {
		var cached time.Time
		if err := r.cache.Get(ctx, completeDateKey(symbol), &cached); err == nil {
			return cached, true, nil
		}
	}

	query := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	for _, col := range indicatorColumns {
		query = query.Where(fmt.Sprintf("%s IS NOT NULL", col))
	}

	var rec models.IndicatorRecord
	err := query.Order("date DESC").First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LatestCompleteDate: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, completeDateKey(symbol), rec.Date, completeDateTTL)
	}
	return rec.Date, true, nil
}

// GetRecords retrieves indicator records for a symbol in ascending date order
func (r *Repository) GetRecords(ctx context.Context, symbol string, start, end time.Time) ([]models.IndicatorRecord, error) {
	var records []models.IndicatorRecord
	query := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date ASC")

	if !start.IsZero() {
		query = query.Where("date >= ?", start)
	}
	if !end.IsZero() {
		query = query.Where("date <= ?", end)
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("GetRecords: %w", err)
	}
	return records, nil
}

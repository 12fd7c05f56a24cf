// Package bars provides database access to daily OHLCV bars and symbol
// reference data.
package bars

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strongk-quant/database"
	models "strongk-quant/database/models_pkg"
)

// Order controls the sort direction of a bar query
type Order string

const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

// Query describes a filtered bar lookup. Zero values mean "no constraint":
// a zero Start/End leaves that side of the date range open, a zero Limit
// returns all matching rows, an empty Fields selects every column.
type Query struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Order  Order
	Fields []string // column projection for wide scans
}

// Repository handles database operations for daily bars
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bars repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBars retrieves ordered bars for a symbol
func (r *Repository) GetBars(ctx context.Context, symbol string, q Query) ([]models.Bar, error) {
	order := q.Order
	if order == "" {
		order = Asc
	}

	var bars []models.Bar
	query := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order(fmt.Sprintf("date %s", order))

	if !q.Start.IsZero() {
		query = query.Where("date >= ?", q.Start)
	}
	if !q.End.IsZero() {
		query = query.Where("date <= ?", q.End)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if len(q.Fields) > 0 {
		query = query.Select(q.Fields)
	}

	if err := query.Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}
	return bars, nil
}

// SaveBars upserts a batch of bars keyed by (symbol, date)
func (r *Repository) SaveBars(ctx context.Context, data []models.Bar) error {
	if len(data) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "prev_close", "volume", "amount",
			"turnover", "trade_status", "pct_change", "adjust_flag", "is_st",
		}),
	}).Create(&data).Error
	if err != nil {
		return fmt.Errorf("SaveBars: %w", err)
	}
	return nil
}

// LatestBarDate returns the most recent bar date for a symbol. The second
// return value is false when the symbol has no bars at all.
func (r *Repository) LatestBarDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var bar models.Bar
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&bar).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LatestBarDate: %w", err)
	}
	return bar.Date, true, nil
}

// GetSymbolInfo retrieves reference data for a symbol. A missing row
// surfaces as a database.NotFoundError so callers with a fallback can
// tell it apart from a query failure.
func (r *Repository) GetSymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error) {
	var info models.SymbolInfo
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&info).Error
	if err == gorm.ErrRecordNotFound {
		return nil, database.NewNotFoundErrorWithID("symbol", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("GetSymbolInfo: %w", err)
	}
	return &info, nil
}

// SaveSymbolInfo upserts symbol reference data
func (r *Repository) SaveSymbolInfo(ctx context.Context, info *models.SymbolInfo) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "exchange", "industry", "is_st", "listed_date", "is_active",
		}),
	}).Create(info).Error
	if err != nil {
		return fmt.Errorf("SaveSymbolInfo: %w", err)
	}
	return nil
}

// ListActiveSymbols returns all symbols currently flagged active
func (r *Repository) ListActiveSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&models.SymbolInfo{}).
		Where("is_active = ?", true).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("ListActiveSymbols: %w", err)
	}
	return symbols, nil
}

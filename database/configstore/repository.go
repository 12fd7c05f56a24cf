// Package configstore provides runtime configuration values backed by the
// app_config table with a short-lived Redis cache in front. Strategy and
// indicator parameters are tunable per deployment without a restart.
package configstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strongk-quant/cache"
	models "strongk-quant/database/models_pkg"
)

// cacheTTL bounds how stale a tuned value can be after an update.
const cacheTTL = 5 * time.Minute

// Repository handles runtime configuration lookups
type Repository struct {
	db    *gorm.DB
	cache *cache.RedisClient
}

// NewRepository creates a new config repository. The cache may be nil, in
// which case every lookup hits the database.
func NewRepository(db *gorm.DB, redisClient *cache.RedisClient) *Repository {
	return &Repository{db: db, cache: redisClient}
}

// GetString returns a config value, falling back to def when the key is
// absent or unreadable.
func (r *Repository) GetString(ctx context.Context, category, section, key, def string) string {
	cacheKey := fmt.Sprintf("config:%s:%s:%s", category, section, key)

	var cached string
	if r.cache != nil {
		if err := r.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached
		}
	}

	var cfg models.AppConfig
	err := r.db.WithContext(ctx).
		Where("category = ? AND section = ? AND key = ?", category, section, key).
		First(&cfg).Error
	if err != nil {
		return def
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, cfg.Value, cacheTTL)
	}
	return cfg.Value
}

// GetFloat returns a config value parsed as float64
func (r *Repository) GetFloat(ctx context.Context, category, section, key string, def float64) float64 {
	raw := r.GetString(ctx, category, section, key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// GetInt returns a config value parsed as int
func (r *Repository) GetInt(ctx context.Context, category, section, key string, def int) int {
	raw := r.GetString(ctx, category, section, key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Set upserts a config value and invalidates its cache entry
func (r *Repository) Set(ctx context.Context, category, section, key, value, description string) error {
	cfg := models.AppConfig{
		Category:    category,
		Section:     section,
		Key:         key,
		Value:       value,
		Description: description,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "section"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description"}),
	}).Create(&cfg).Error
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}

	if r.cache != nil {
		cacheKey := fmt.Sprintf("config:%s:%s:%s", category, section, key)
		_ = r.cache.Delete(ctx, cacheKey)
	}
	return nil
}

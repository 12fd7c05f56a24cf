// Package database provides database connection management for the strongk-quant analysis system.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - Schema migration for bars, indicators, signals, and runtime config
//   - Comprehensive error handling and validation
//
// Data Models:
//
//	All data models (Bar, IndicatorRecord, StrategySignal, etc.) are defined
//	in the models_pkg package to avoid circular import dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "strongk-quant/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the underlying DB instance.
// It serves as the central connection point for all database operations in the application.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Migrate creates or updates all application tables.
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(
		&models.Bar{},
		&models.IndicatorRecord{},
		&models.SymbolInfo{},
		&models.StrategySignal{},
		&models.AppConfig{},
		&models.BacktestRun{},
		&models.BacktestTrade{},
	)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Core data models - type aliases so callers can use database.Bar etc.
// without importing models_pkg directly.
type Bar = models.Bar
type IndicatorRecord = models.IndicatorRecord
type SymbolInfo = models.SymbolInfo
type StrategySignal = models.StrategySignal
type AppConfig = models.AppConfig
type BacktestRun = models.BacktestRun
type BacktestTrade = models.BacktestTrade

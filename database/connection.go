package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq" // PostgreSQL driver, also used for COPY bulk loads

	models "strongk-quant/database/models_pkg"
)

// DB wraps the raw database connection used for bulk operations
type DB struct {
	conn *sql.DB
}

// ConnConfig holds raw connection configuration
type ConnConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// NewConnection creates a new database connection
func NewConnection(cfg ConnConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - Optimized for batched pipeline workload
	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(25) // Keep half warm to reduce connection overhead
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(2 * time.Minute)

	// Verify connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")

	return &DB{conn: conn}, nil
}

// BulkInsertBars loads daily bars through the COPY protocol. This is the fast
// path for first-time history imports into an empty (or gap-free) range; it
// does not upsert, so conflicting (symbol, date) rows must not already exist.
func (db *DB) BulkInsertBars(ctx context.Context, bars []models.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("daily_bars",
		"symbol", "date", "open", "high", "low", "close", "prev_close",
		"volume", "amount", "turnover", "trade_status", "pct_change",
		"adjust_flag", "is_st",
	))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare COPY: %w", err)
	}

	for _, b := range bars {
		_, err = stmt.ExecContext(ctx,
			b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.PrevClose,
			b.Volume, b.Amount, b.Turnover, b.TradeStatus, b.PctChange,
			b.AdjustFlag, b.IsST,
		)
		if err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to buffer bar %s/%s: %w", b.Symbol, b.Date.Format("2006-01-02"), err)
		}
	}

	// Flush the COPY buffer
	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush COPY: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close COPY statement: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk insert: %w", err)
	}

	return int64(len(bars)), nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		log.Println("📡 Closing database connection...")
		return db.conn.Close()
	}
	return nil
}

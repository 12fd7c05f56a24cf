package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Indicator configuration
	Indicator IndicatorConfig

	// Strategy configuration
	Strategy StrategyConfig

	// Risk configuration
	Risk RiskConfig

	// Backtest configuration
	Backtest BacktestConfig

	// Pipeline configuration
	Pipeline PipelineConfig
}

// IndicatorConfig holds technical indicator windows and constants
type IndicatorConfig struct {
	CCIPeriod      int
	CCIConstant    float64
	CCIPeriodST    int     // wider window for ST symbols
	CCIConstantST  float64 // smaller scaling constant for ST symbols
	RSIPeriod      int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	KDJPeriod      int
	KDJKSmooth     int
	KDJDSmooth     int
	BollPeriod     int
	BollMultiplier float64

	// LookbackFactor scales the longest window into the extra history pulled
	// in before the incremental start date so warmup values converge.
	LookbackFactor int
}

// StrategyConfig holds strategy selection and shared gating parameters
type StrategyConfig struct {
	Variant          string // STRONG_K_BREAKOUT, TREND_CONFIRMATION, BOTTOM_REVERSAL
	MaxOpenPositions int
	MinBars          int // symbols with fewer bars are skipped outright
}

// RiskConfig holds position sizing parameters
type RiskConfig struct {
	InitialCapital    float64
	PerTradeRiskPct   float64 // fraction of capital risked per trade
	AggregateRiskPct  float64 // fraction of capital at risk across all open positions
	CashBufferPct     float64 // fraction of capital deployable into one position
	MinLotValue       float64 // lower bound on position value, in currency units
	StrongKBoost      float64 // per-trade risk multiplier for strong-K entries
	CommissionRatePct float64 // per-side commission, fraction of traded value
}

// BacktestConfig holds backtest execution parameters
type BacktestConfig struct {
	StartDate string // YYYY-MM-DD, empty means full history
	EndDate   string
}

// PipelineConfig holds batch processing parameters
type PipelineConfig struct {
	FetchConcurrency   int
	ProcessConcurrency int
	BatchSize          int
	FetchRatePerSec    float64 // upstream courtesy limit on bar fetches
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "strongk_quant"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "quant"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "quant123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Indicator: IndicatorConfig{
			CCIPeriod:      getEnvInt("INDICATOR_CCI_PERIOD", 14),
			CCIConstant:    getEnvFloat("INDICATOR_CCI_CONSTANT", 0.015),
			CCIPeriodST:    getEnvInt("INDICATOR_CCI_PERIOD_ST", 20),
			CCIConstantST:  getEnvFloat("INDICATOR_CCI_CONSTANT_ST", 0.02),
			RSIPeriod:      getEnvInt("INDICATOR_RSI_PERIOD", 14),
			MACDFast:       getEnvInt("INDICATOR_MACD_FAST", 12),
			MACDSlow:       getEnvInt("INDICATOR_MACD_SLOW", 26),
			MACDSignal:     getEnvInt("INDICATOR_MACD_SIGNAL", 9),
			KDJPeriod:      getEnvInt("INDICATOR_KDJ_PERIOD", 9),
			KDJKSmooth:     getEnvInt("INDICATOR_KDJ_K_SMOOTH", 3),
			KDJDSmooth:     getEnvInt("INDICATOR_KDJ_D_SMOOTH", 3),
			BollPeriod:     getEnvInt("INDICATOR_BOLL_PERIOD", 20),
			BollMultiplier: getEnvFloat("INDICATOR_BOLL_MULTIPLIER", 2.0),
			LookbackFactor: getEnvInt("INDICATOR_LOOKBACK_FACTOR", 3),
		},

		Strategy: StrategyConfig{
			Variant:          getEnvOrDefault("STRATEGY_VARIANT", "STRONG_K_BREAKOUT"),
			MaxOpenPositions: getEnvInt("STRATEGY_MAX_OPEN_POSITIONS", 10),
			MinBars:          getEnvInt("STRATEGY_MIN_BARS", 60),
		},

		Risk: RiskConfig{
			InitialCapital:    getEnvFloat("RISK_INITIAL_CAPITAL", 1000000),
			PerTradeRiskPct:   getEnvFloat("RISK_PER_TRADE_PCT", 0.02),
			AggregateRiskPct:  getEnvFloat("RISK_AGGREGATE_PCT", 0.10),
			CashBufferPct:     getEnvFloat("RISK_CASH_BUFFER_PCT", 0.95),
			MinLotValue:       getEnvFloat("RISK_MIN_LOT_VALUE", 100),
			StrongKBoost:      getEnvFloat("RISK_STRONGK_BOOST", 1.2),
			CommissionRatePct: getEnvFloat("RISK_COMMISSION_RATE", 0.001),
		},

		Backtest: BacktestConfig{
			StartDate: getEnvOrDefault("BACKTEST_START_DATE", ""),
			EndDate:   getEnvOrDefault("BACKTEST_END_DATE", ""),
		},

		Pipeline: PipelineConfig{
			FetchConcurrency:   getEnvInt("PIPELINE_FETCH_CONCURRENCY", 30),
			ProcessConcurrency: getEnvInt("PIPELINE_PROCESS_CONCURRENCY", 3),
			BatchSize:          getEnvInt("PIPELINE_BATCH_SIZE", 100),
			FetchRatePerSec:    getEnvFloat("PIPELINE_FETCH_RATE", 20.0),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

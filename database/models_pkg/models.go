package models

import "time"

// Bar represents a single daily OHLCV bar for one symbol.
// Bars are the raw input of the analysis pipeline: the indicator engine and
// the strategies both consume ordered slices of bars.
//
// Key Fields:
//   - Symbol: The stock ticker symbol (part of the composite unique index)
//   - Date: Trading date of the bar (part of the composite unique index)
//   - Open/High/Low/Close: OHLC price data for the day
//   - PrevClose: Previous session close, used for percent-change calculations
//   - Volume: Traded volume in shares
//   - Amount: Total transaction value for the day
//   - Turnover: Turnover rate in percent
//   - TradeStatus: 1 when the symbol traded normally, 0 when suspended
//   - IsST: Whether the symbol carries special-treatment status; ST symbols
//     use a wider CCI window with a smaller scaling constant
type Bar struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol      string    `gorm:"size:12;not null;uniqueIndex:idx_bars_symbol_date,priority:1" json:"symbol"`
	Date        time.Time `gorm:"not null;index;uniqueIndex:idx_bars_symbol_date,priority:2" json:"date"`
	Open        float64   `gorm:"type:decimal(15,4);not null" json:"open"`
	High        float64   `gorm:"type:decimal(15,4);not null" json:"high"`
	Low         float64   `gorm:"type:decimal(15,4);not null" json:"low"`
	Close       float64   `gorm:"type:decimal(15,4);not null" json:"close"`
	PrevClose   float64   `gorm:"type:decimal(15,4)" json:"prev_close"`
	Volume      float64   `gorm:"type:decimal(20,2);not null" json:"volume"` // in shares
	Amount      float64   `gorm:"type:decimal(20,2)" json:"amount"`          // total transaction value
	Turnover    float64   `gorm:"type:decimal(10,4)" json:"turnover"`        // turnover rate, percent
	TradeStatus int       `gorm:"default:1" json:"trade_status"`             // 1=trading, 0=suspended
	PctChange   float64   `gorm:"type:decimal(10,4)" json:"pct_change"`
	AdjustFlag  string    `gorm:"size:5" json:"adjust_flag"` // 1=backward, 2=forward, 3=none
	IsST        bool      `gorm:"default:false" json:"is_st"`
}

// TableName specifies the table name for Bar
func (Bar) TableName() string {
	return "daily_bars"
}

// IndicatorRecord represents one day of computed technical indicator values
// for one symbol. Every indicator column is nullable: a nil value means the
// indicator was not yet computable for that date, typically because the
// available history was shorter than the indicator window. A record is
// "complete" when all columns are non-nil; the engine resumes incremental
// computation from the latest complete record.
//
// Key Fields:
//   - Symbol/Date: Composite unique identity, mirrors daily_bars
//   - CCI: Commodity Channel Index over a mean-absolute-deviation window
//   - CCIPeriod/CCIConstant: Window and scaling constant the CCI was
//     computed with; ST symbols use a wider window
//   - RSI: Relative Strength Index with Wilder smoothing
//   - MACDLine/MACDSignal/MACDHist: MACD line, signal line, and histogram
//   - KDJK/KDJD/KDJJ: Stochastic KDJ oscillator values
//   - BollUpper/BollMiddle/BollLower: Bollinger band levels
type IndicatorRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol      string    `gorm:"size:12;not null;uniqueIndex:idx_indicators_symbol_date,priority:1" json:"symbol"`
	Date        time.Time `gorm:"not null;index;uniqueIndex:idx_indicators_symbol_date,priority:2" json:"date"`
	CCI         *float64  `gorm:"type:decimal(15,6)" json:"cci,omitempty"`
	CCIPeriod   int       `gorm:"column:cci_period" json:"cci_period,omitempty"`
	CCIConstant float64   `gorm:"column:cci_constant;type:decimal(10,6)" json:"cci_constant,omitempty"`
	RSI         *float64  `gorm:"type:decimal(10,6)" json:"rsi,omitempty"`
	MACDLine    *float64  `gorm:"type:decimal(15,6)" json:"macd_line,omitempty"`
	MACDSignal  *float64  `gorm:"type:decimal(15,6)" json:"macd_signal,omitempty"`
	MACDHist    *float64  `gorm:"type:decimal(15,6)" json:"macd_hist,omitempty"`
	KDJK        *float64  `gorm:"column:kdj_k;type:decimal(10,6)" json:"kdj_k,omitempty"`
	KDJD        *float64  `gorm:"column:kdj_d;type:decimal(10,6)" json:"kdj_d,omitempty"`
	KDJJ        *float64  `gorm:"column:kdj_j;type:decimal(10,6)" json:"kdj_j,omitempty"`
	BollUpper   *float64  `gorm:"type:decimal(15,6)" json:"boll_upper,omitempty"`
	BollMiddle  *float64  `gorm:"type:decimal(15,6)" json:"boll_middle,omitempty"`
	BollLower   *float64  `gorm:"type:decimal(15,6)" json:"boll_lower,omitempty"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for IndicatorRecord
func (IndicatorRecord) TableName() string {
	return "technical_indicators"
}

// SymbolInfo holds static reference data for a symbol
type SymbolInfo struct {
	Symbol     string     `gorm:"primaryKey;size:12" json:"symbol"`
	Name       string     `gorm:"size:50" json:"name"`
	Exchange   string     `gorm:"size:10" json:"exchange"`
	Industry   string     `gorm:"size:50" json:"industry"`
	IsST       bool       `gorm:"default:false" json:"is_st"`
	ListedDate *time.Time `json:"listed_date,omitempty"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for SymbolInfo
func (SymbolInfo) TableName() string {
	return "symbol_info"
}

// StrategySignal represents a persisted trading signal in the database.
// Signals are generated by the strategy runner and stored for review and
// for replay through the backtest executor.
//
// Key Fields:
//   - SignalID: UUID assigned at generation time
//   - GeneratedAt: Bar date the signal fired on (indexed)
//   - Symbol: The stock ticker symbol (indexed)
//   - Strategy: Strategy variant (STRONG_K_BREAKOUT, TREND_CONFIRMATION, BOTTOM_REVERSAL)
//   - Action: BUY or SELL
//   - Stage: Breakout stage at signal time, only set by the breakout variant
//   - StopLoss/TargetPrice: Exit levels attached to BUY signals
type StrategySignal struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SignalID    string    `gorm:"size:36;uniqueIndex;not null" json:"signal_id"`
	GeneratedAt time.Time `gorm:"index:idx_signals_time;not null" json:"generated_at"`
	Symbol      string    `gorm:"size:12;index;index:idx_signals_symbol_strategy,priority:1;not null" json:"symbol"`
	Strategy    string    `gorm:"type:text;index:idx_signals_symbol_strategy,priority:2;not null" json:"strategy"`
	Action      string    `gorm:"size:10;not null" json:"action"` // BUY, SELL
	Price       float64   `gorm:"type:decimal(15,4);not null" json:"price"`
	Confidence  float64   `gorm:"type:decimal(5,2)" json:"confidence"`
	Stage       *string   `gorm:"type:text" json:"stage,omitempty"`
	StopLoss    *float64  `gorm:"type:decimal(15,4)" json:"stop_loss,omitempty"`
	TargetPrice *float64  `gorm:"type:decimal(15,4)" json:"target_price,omitempty"`
	Reason      string    `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for StrategySignal
func (StrategySignal) TableName() string {
	return "strategy_signals"
}

// BacktestRun stores the summary of one backtest execution. The per-trade
// detail lives in BacktestTrade rows keyed by RunID.
//
// Key Fields:
//   - RunID: UUID assigned by the executor
//   - StartDate/EndDate: Replay window the run covered
//   - FinalEquity: Portfolio value at the end of the window
//   - StatsJSON: Serialized performance statistics for the run
type BacktestRun struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID          string    `gorm:"size:36;uniqueIndex;not null" json:"run_id"`
	Strategy       string    `gorm:"type:text;not null" json:"strategy"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `gorm:"type:decimal(20,2);not null" json:"initial_capital"`
	FinalEquity    float64   `gorm:"type:decimal(20,2);not null" json:"final_equity"`
	TotalTrades    int       `json:"total_trades"`
	StatsJSON      string    `gorm:"type:text" json:"stats_json"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for BacktestRun
func (BacktestRun) TableName() string {
	return "backtest_runs"
}

// BacktestTrade is one completed round trip inside a backtest run
type BacktestTrade struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID       string    `gorm:"size:36;index;not null" json:"run_id"`
	Symbol      string    `gorm:"size:12;index;not null" json:"symbol"`
	Stage       *string   `gorm:"type:text" json:"stage,omitempty"`
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	EntryPrice  float64   `gorm:"type:decimal(15,4);not null" json:"entry_price"`
	ExitPrice   float64   `gorm:"type:decimal(15,4);not null" json:"exit_price"`
	Quantity    int64     `gorm:"not null" json:"quantity"`
	PnL         float64   `gorm:"column:pnl;type:decimal(20,4);not null" json:"pnl"`
	HoldingDays float64   `gorm:"type:decimal(10,2)" json:"holding_days"`
}

// TableName specifies the table name for BacktestTrade
func (BacktestTrade) TableName() string {
	return "backtest_trades"
}

// AppConfig stores a single runtime configuration value. Values are grouped
// by category and section so strategy parameters can be tuned without a
// redeploy; the config store layers a short-lived Redis cache on top.
type AppConfig struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Category    string    `gorm:"size:50;not null;uniqueIndex:idx_config_key,priority:1" json:"category"`
	Section     string    `gorm:"size:50;not null;uniqueIndex:idx_config_key,priority:2" json:"section"`
	Key         string    `gorm:"size:100;not null;uniqueIndex:idx_config_key,priority:3" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	Description string    `gorm:"type:text" json:"description"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for AppConfig
func (AppConfig) TableName() string {
	return "app_config"
}

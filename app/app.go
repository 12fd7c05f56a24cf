package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"strongk-quant/backtest"
	"strongk-quant/cache"
	"strongk-quant/config"
	"strongk-quant/database"
	"strongk-quant/database/bars"
	"strongk-quant/database/configstore"
	"strongk-quant/database/indicators"
	models "strongk-quant/database/models_pkg"
	"strongk-quant/database/signals"
	"strongk-quant/indicator"
	"strongk-quant/strategy"
)

// App wires the daily signal pipeline together
type App struct {
	config *config.Config
	log    *logrus.Logger
	db     *database.Database
	redis  *cache.RedisClient

	barRepo       *bars.Repository
	indicatorRepo *indicators.Repository
	signalRepo    *signals.Repository
	configRepo    *configstore.Repository

	engine   *indicator.Engine
	runner   *strategy.Runner
	pipeline *Pipeline
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &App{config: cfg, log: log}
}

// Start connects the stores, runs one batch over all active symbols, and
// shuts down. An interrupt cancels the run between symbols; committed
// writes stay committed.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\n🛑 Shutdown signal received, cancelling run...")
		cancel()
	}()

	// 1. Database Connection
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := a.db.Migrate(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Repositories
	gdb := a.db.DB()
	a.barRepo = bars.NewRepository(gdb)
	a.indicatorRepo = indicators.NewRepository(gdb, a.redis)
	a.signalRepo = signals.NewRepository(gdb)
	a.configRepo = configstore.NewRepository(gdb, a.redis)

	// 4. Indicator engine, with config-store overrides on top of the env
	// defaults
	a.engine = indicator.NewEngine(a.indicatorConfig(ctx), a.barRepo, a.barRepo, a.indicatorRepo, a.log)

	// 5. Strategy runner
	kind, err := strategy.ParseKind(a.config.Strategy.Variant)
	if err != nil {
		a.log.Warnf("unknown strategy variant %q, falling back to %s", a.config.Strategy.Variant, strategy.KindBreakout)
		kind = strategy.KindBreakout
	}
	runnerCfg := strategy.DefaultConfig(kind)
	runnerCfg.MaxOpenPositions = a.config.Strategy.MaxOpenPositions
	a.runner = strategy.NewRunner(runnerCfg, a.log)
	fmt.Printf("📈 Strategy: %s\n", kind)

	// 6. Pipeline
	a.pipeline = NewPipeline(PipelineConfig{
		FetchConcurrency:   a.config.Pipeline.FetchConcurrency,
		ProcessConcurrency: a.config.Pipeline.ProcessConcurrency,
		BatchSize:          a.config.Pipeline.BatchSize,
		FetchRatePerSec:    a.config.Pipeline.FetchRatePerSec,
		MinBars:            a.config.Strategy.MinBars,
		Strategy:           kind.String(),
	}, a.barRepo, a.engine, a.runner, a.signalRepo, a.log)

	// 7. Run the batch
	symbols, err := a.barRepo.ListActiveSymbols(ctx)
	if err != nil {
		a.shutdown()
		return fmt.Errorf("listing symbols failed: %w", err)
	}
	if len(symbols) == 0 {
		fmt.Println("⚠️  No active symbols found, nothing to do.")
		return a.shutdown()
	}

	fmt.Printf("🚀 Processing %d symbols...\n", len(symbols))
	started := time.Now()
	outcomes, runErr := a.pipeline.Run(ctx, symbols)
	a.reportOutcomes(outcomes, time.Since(started))

	shutdownErr := a.shutdown()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return shutdownErr
}

// indicatorConfig layers config-store overrides over the env-provided
// defaults. Symbols fall back to the defaults when the store is empty or
// unreachable.
func (a *App) indicatorConfig(ctx context.Context) indicator.Config {
	base := a.config.Indicator
	return indicator.Config{
		CCIPeriod:      a.configRepo.GetInt(ctx, "indicator", "cci", "period", base.CCIPeriod),
		CCIConstant:    a.configRepo.GetFloat(ctx, "indicator", "cci", "constant", base.CCIConstant),
		CCIPeriodST:    a.configRepo.GetInt(ctx, "indicator", "cci", "period_st", base.CCIPeriodST),
		CCIConstantST:  a.configRepo.GetFloat(ctx, "indicator", "cci", "constant_st", base.CCIConstantST),
		RSIPeriod:      a.configRepo.GetInt(ctx, "indicator", "rsi", "period", base.RSIPeriod),
		MACDFast:       a.configRepo.GetInt(ctx, "indicator", "macd", "fast", base.MACDFast),
		MACDSlow:       a.configRepo.GetInt(ctx, "indicator", "macd", "slow", base.MACDSlow),
		MACDSignal:     a.configRepo.GetInt(ctx, "indicator", "macd", "signal", base.MACDSignal),
		KDJPeriod:      a.configRepo.GetInt(ctx, "indicator", "kdj", "period", base.KDJPeriod),
		KDJKSmooth:     a.configRepo.GetInt(ctx, "indicator", "kdj", "k_smooth", base.KDJKSmooth),
		KDJDSmooth:     a.configRepo.GetInt(ctx, "indicator", "kdj", "d_smooth", base.KDJDSmooth),
		BollPeriod:     a.configRepo.GetInt(ctx, "indicator", "boll", "period", base.BollPeriod),
		BollMultiplier: a.configRepo.GetFloat(ctx, "indicator", "boll", "multiplier", base.BollMultiplier),
		LookbackFactor: base.LookbackFactor,
	}
}

// RunBacktest replays the signals persisted for the configured strategy
// variant against the given symbols' close series. Callers must have
// Start()ed the app far enough to have repositories, so this is exposed for
// the backtest entrypoint rather than the daily batch.
func (a *App) RunBacktest(ctx context.Context, symbols []string, start, end time.Time) (*backtest.Result, error) {
	kind, err := strategy.ParseKind(a.config.Strategy.Variant)
	if err != nil {
		kind = strategy.KindBreakout
	}
	recs, err := a.signalRepo.GetSignals(ctx, "", kind.String(), "", start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("RunBacktest: %w", err)
	}
	sigs := make([]strategy.Signal, 0, len(recs))
	for _, rec := range recs {
		sigs = append(sigs, strategy.SignalFromRecord(rec))
	}

	sizer := strategy.NewSizer(
		a.config.Risk.PerTradeRiskPct,
		a.config.Risk.AggregateRiskPct,
		a.config.Risk.CashBufferPct,
		a.config.Risk.MinLotValue,
		a.config.Risk.StrongKBoost,
	)
	exec := backtest.NewExecutor(backtest.Config{
		InitialCapital: a.config.Risk.InitialCapital,
		CommissionRate: a.config.Risk.CommissionRatePct,
	}, sizer.Size, a.log)

	barsBySymbol, err := loadBacktestBars(ctx, a.barRepo, symbols)
	if err != nil {
		return nil, fmt.Errorf("RunBacktest: %w", err)
	}

	res, err := exec.Run(sigs, barsBySymbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := a.saveBacktest(ctx, res); err != nil {
		a.log.Warnf("backtest result not persisted: %v", err)
	}
	return res, nil
}

// backtestColumns is the projection the replay needs; the executor only
// reads dates and closes.
var backtestColumns = []string{"symbol", "date", "close"}

// loadBacktestBars fetches each symbol's full ascending series, projected
// down to the columns the executor reads.
func loadBacktestBars(ctx context.Context, fetcher BarFetcher, symbols []string) (map[string][]models.Bar, error) {
	out := make(map[string][]models.Bar, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fetcher.GetBars(ctx, symbol, bars.Query{Order: bars.Asc, Fields: backtestColumns})
		if err != nil {
			return nil, err
		}
		out[symbol] = data
	}
	return out, nil
}

// saveBacktest stores the run summary and its trades for later review
func (a *App) saveBacktest(ctx context.Context, res *backtest.Result) error {
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("saveBacktest: %w", err)
	}

	run := models.BacktestRun{
		RunID:          res.RunID,
		Strategy:       a.config.Strategy.Variant,
		StartDate:      res.StartDate,
		EndDate:        res.EndDate,
		InitialCapital: res.InitialCapital,
		FinalEquity:    res.FinalEquity,
		TotalTrades:    len(res.Trades),
		StatsJSON:      string(statsJSON),
	}

	trades := make([]models.BacktestTrade, 0, len(res.Trades))
	for _, t := range res.Trades {
		rec := models.BacktestTrade{
			RunID:       res.RunID,
			Symbol:      t.Symbol,
			EntryTime:   t.EntryTime,
			ExitTime:    t.ExitTime,
			EntryPrice:  t.EntryPrice,
			ExitPrice:   t.ExitPrice,
			Quantity:    t.Quantity,
			PnL:         t.PnL,
			HoldingDays: t.HoldingDays,
		}
		if t.Stage != "" {
			stage := string(t.Stage)
			rec.Stage = &stage
		}
		trades = append(trades, rec)
	}
	return a.signalRepo.SaveBacktest(ctx, run, trades)
}

// ImportHistory loads daily bars, routing each symbol by what the store
// already holds: symbols with no history go through the COPY protocol on a
// raw connection, symbols with existing rows go through the upsert path so
// re-imports do not collide on (symbol, date). Symbol reference rows are
// refreshed from the last imported bar.
func (a *App) ImportHistory(ctx context.Context, data []models.Bar) (int64, error) {
	bySymbol := make(map[string][]models.Bar)
	for _, b := range data {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	var fresh []models.Bar
	var imported int64
	for symbol, rows := range bySymbol {
		_, exists, err := a.barRepo.LatestBarDate(ctx, symbol)
		if err != nil {
			return imported, fmt.Errorf("ImportHistory: %w", err)
		}
		if !exists {
			fresh = append(fresh, rows...)
			continue
		}
		if err := a.barRepo.SaveBars(ctx, rows); err != nil {
			return imported, fmt.Errorf("ImportHistory: %w", err)
		}
		imported += int64(len(rows))
	}

	if len(fresh) > 0 {
		n, err := a.bulkImport(ctx, fresh)
		if err != nil {
			return imported, err
		}
		imported += n
	}

	for symbol, rows := range bySymbol {
		last := rows[len(rows)-1]
		info := &models.SymbolInfo{Symbol: symbol, IsST: last.IsST, IsActive: true}
		if err := a.barRepo.SaveSymbolInfo(ctx, info); err != nil {
			a.log.WithField("symbol", symbol).Warnf("symbol info not saved: %v", err)
		}
	}

	a.log.WithField("bars", imported).Info("history import complete")
	return imported, nil
}

// bulkImport streams bars through pq's COPY support on a dedicated raw
// connection, bypassing the ORM for first-time history loads.
func (a *App) bulkImport(ctx context.Context, data []models.Bar) (int64, error) {
	raw, err := database.NewConnection(database.ConnConfig{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		return 0, fmt.Errorf("ImportHistory: %w", err)
	}
	defer raw.Close()

	n, err := raw.BulkInsertBars(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("ImportHistory: %w", err)
	}
	return n, nil
}

func (a *App) reportOutcomes(outcomes []SymbolOutcome, elapsed time.Duration) {
	success, noData, failed := 0, 0, 0
	records, sigCount := 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case "success":
			success++
		case "no-data":
			noData++
		default:
			failed++
			a.log.WithField("symbol", o.Symbol).Warnf("symbol failed: %v", o.Err)
		}
		records += o.NewRecords
		sigCount += o.Signals
	}

	a.log.WithFields(logrus.Fields{
		"success":     success,
		"no_data":     noData,
		"failed":      failed,
		"new_records": records,
		"signals":     sigCount,
		"elapsed":     elapsed.Round(time.Millisecond).String(),
	}).Info("batch run complete")
	fmt.Printf("✅ Batch run complete: %d ok, %d no-data, %d failed, %d signals\n",
		success, noData, failed, sigCount)
}

func (a *App) shutdown() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Errorf("closing database: %v", err)
			firstErr = err
		} else {
			fmt.Println("✅ Database connection closed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Errorf("closing redis: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			fmt.Println("✅ Redis connection closed")
		}
	}
	return firstErr
}

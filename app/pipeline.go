package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"strongk-quant/database/bars"
	models "strongk-quant/database/models_pkg"
	"strongk-quant/indicator"
	"strongk-quant/strategy"
)

// BarFetcher loads ordered bars for one symbol
type BarFetcher interface {
	GetBars(ctx context.Context, symbol string, q bars.Query) ([]models.Bar, error)
}

// IndicatorComputer brings one symbol's indicator records up to date
type IndicatorComputer interface {
	ComputeIncremental(ctx context.Context, symbol string) (int, error)
}

// SignalGenerator evaluates one symbol's bars and emits signals
type SignalGenerator interface {
	GenerateSignals(symbol string, bars []models.Bar) []strategy.Signal
}

// SignalSink persists generated signals
type SignalSink interface {
	SaveSignals(ctx context.Context, sigs []models.StrategySignal) error
}

// PipelineConfig bounds the two pipeline stages
type PipelineConfig struct {
	FetchConcurrency   int     // parallel bar fetches
	ProcessConcurrency int     // parallel compute/persist workers
	BatchSize          int     // symbols per sequential batch
	FetchRatePerSec    float64 // bar-fetch rate ceiling, 0 disables
	MinBars            int     // bars required before a symbol is evaluated
	Strategy           string  // persisted strategy name on saved signals
}

// SymbolOutcome records how one symbol fared in a batch run. One symbol's
// failure never aborts the batch; it is reported here instead.
type SymbolOutcome struct {
	Symbol     string
	Status     string // "success", "no-data", "error"
	NewRecords int
	Signals    int
	Err        error
}

// Pipeline runs the daily batch: for each symbol, fetch bars, refresh
// indicator records, evaluate the strategy, persist signals. Fetching runs
// under a wide concurrency ceiling, processing under a narrow one, and
// symbols are chunked into batches to bound in-flight work.
type Pipeline struct {
	cfg     PipelineConfig
	fetcher BarFetcher
	engine  IndicatorComputer
	runner  SignalGenerator
	sink    SignalSink
	limiter *rate.Limiter
	log     *logrus.Logger
}

// NewPipeline wires the pipeline stages together
func NewPipeline(cfg PipelineConfig, fetcher BarFetcher, engine IndicatorComputer, runner SignalGenerator, sink SignalSink, log *logrus.Logger) *Pipeline {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if cfg.ProcessConcurrency <= 0 {
		cfg.ProcessConcurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if log == nil {
		log = logrus.New()
	}

	var limiter *rate.Limiter
	if cfg.FetchRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.FetchRatePerSec), cfg.FetchConcurrency)
	}

	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		engine:  engine,
		runner:  runner,
		sink:    sink,
		limiter: limiter,
		log:     log,
	}
}

// Run processes all symbols in sequential batches and returns a per-symbol
// outcome list. Cancellation is cooperative: a cancelled context stops new
// work between symbols and batches but leaves committed writes intact.
func (p *Pipeline) Run(ctx context.Context, symbols []string) ([]SymbolOutcome, error) {
	outcomes := make([]SymbolOutcome, 0, len(symbols))

	for start := 0; start < len(symbols); start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		end := start + p.cfg.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		p.log.WithFields(logrus.Fields{
			"batch":   start/p.cfg.BatchSize + 1,
			"symbols": len(batch),
		}).Info("processing batch")

		outcomes = append(outcomes, p.runBatch(ctx, batch)...)
	}
	return outcomes, ctx.Err()
}

type fetched struct {
	symbol string
	bars   []models.Bar
	err    error
}

// runBatch fans the batch out through the fetch stage into the processing
// stage and collects outcomes.
func (p *Pipeline) runBatch(ctx context.Context, batch []string) []SymbolOutcome {
	fetchCh := make(chan fetched, len(batch))

	var fetchWG sync.WaitGroup
	fetchSem := make(chan struct{}, p.cfg.FetchConcurrency)
	for _, symbol := range batch {
		if ctx.Err() != nil {
			break
		}
		fetchWG.Add(1)
		go func(symbol string) {
			defer fetchWG.Done()
			fetchSem <- struct{}{}
			defer func() { <-fetchSem }()

			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					fetchCh <- fetched{symbol: symbol, err: err}
					return
				}
			}
			data, err := p.fetcher.GetBars(ctx, symbol, bars.Query{Order: bars.Asc})
			fetchCh <- fetched{symbol: symbol, bars: data, err: err}
		}(symbol)
	}
	go func() {
		fetchWG.Wait()
		close(fetchCh)
	}()

	var mu sync.Mutex
	outcomes := make([]SymbolOutcome, 0, len(batch))

	var procWG sync.WaitGroup
	procSem := make(chan struct{}, p.cfg.ProcessConcurrency)
	for f := range fetchCh {
		if ctx.Err() != nil {
			mu.Lock()
			outcomes = append(outcomes, SymbolOutcome{Symbol: f.symbol, Status: "error", Err: ctx.Err()})
			mu.Unlock()
			continue
		}
		procWG.Add(1)
		go func(f fetched) {
			defer procWG.Done()
			procSem <- struct{}{}
			defer func() { <-procSem }()

			out := p.processSymbol(ctx, f)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
		}(f)
	}
	procWG.Wait()
	return outcomes
}

// processSymbol refreshes indicators and evaluates the strategy for one
// fetched symbol. Panics are contained so a bad symbol cannot take down the
// batch.
func (p *Pipeline) processSymbol(ctx context.Context, f fetched) (out SymbolOutcome) {
	out = SymbolOutcome{Symbol: f.symbol}
	defer func() {
		if r := recover(); r != nil {
			out.Status = "error"
			out.Err = fmt.Errorf("processSymbol: panic: %v", r)
			p.log.WithField("symbol", f.symbol).Errorf("recovered: %v", r)
		}
	}()

	if f.err != nil {
		out.Status = "error"
		out.Err = fmt.Errorf("processSymbol: fetch: %w", f.err)
		return out
	}
	if len(f.bars) == 0 {
		out.Status = "no-data"
		return out
	}

	n, err := p.engine.ComputeIncremental(ctx, f.symbol)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			out.Status = "no-data"
			return out
		}
		out.Status = "error"
		out.Err = fmt.Errorf("processSymbol: indicators: %w", err)
		return out
	}
	out.NewRecords = n

	if len(f.bars) < p.cfg.MinBars {
		out.Status = "no-data"
		return out
	}

	sigs := p.runner.GenerateSignals(f.symbol, f.bars)
	out.Signals = len(sigs)
	if len(sigs) > 0 && p.sink != nil {
		recs := make([]models.StrategySignal, 0, len(sigs))
		for _, s := range sigs {
			recs = append(recs, s.Record(p.cfg.Strategy))
		}
		if err := p.sink.SaveSignals(ctx, recs); err != nil {
			out.Status = "error"
			out.Err = fmt.Errorf("processSymbol: save signals: %w", err)
			return out
		}
	}

	out.Status = "success"
	return out
}

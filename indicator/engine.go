package indicator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"strongk-quant/database/bars"
	models "strongk-quant/database/models_pkg"
)

// ErrInsufficientHistory is returned when a symbol has fewer bars than the
// longest indicator window, even after extending the lookback.
var ErrInsufficientHistory = errors.New("insufficient history for indicator computation")

// Config holds indicator windows and constants for the engine
type Config struct {
	CCIPeriod      int
	CCIConstant    float64
	CCIPeriodST    int
	CCIConstantST  float64
	RSIPeriod      int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	KDJPeriod      int
	KDJKSmooth     int
	KDJDSmooth     int
	BollPeriod     int
	BollMultiplier float64
	LookbackFactor int
}

// BarSource supplies ordered daily bars for a symbol
type BarSource interface {
	GetBars(ctx context.Context, symbol string, q bars.Query) ([]models.Bar, error)
}

// SymbolSource supplies symbol reference data
type SymbolSource interface {
	GetSymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error)
}

// RecordStore persists computed indicator records
type RecordStore interface {
	UpsertRecords(ctx context.Context, records []models.IndicatorRecord) error
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
	LatestCompleteDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// Engine computes indicator records incrementally per symbol. Computation
// resumes from the latest complete record: bars on or before that date keep
// their stored values, bars after it are (re)computed with enough trailing
// history pulled in that warmup effects match a full recomputation.
type Engine struct {
	cfg     Config
	bars    BarSource
	symbols SymbolSource
	records RecordStore
	log     *logrus.Logger
}

// NewEngine creates a new indicator engine
func NewEngine(cfg Config, barSource BarSource, symbolSource SymbolSource, recordStore RecordStore, log *logrus.Logger) *Engine {
	if cfg.LookbackFactor <= 0 {
		cfg.LookbackFactor = 3
	}
	return &Engine{
		cfg:     cfg,
		bars:    barSource,
		symbols: symbolSource,
		records: recordStore,
		log:     log,
	}
}

// maxWindow returns the longest warmup any configured indicator needs.
func (e *Engine) maxWindow() int {
	w := e.cfg.CCIPeriod
	for _, c := range []int{
		e.cfg.CCIPeriodST,
		e.cfg.RSIPeriod + 1,
		e.cfg.MACDSlow + e.cfg.MACDSignal,
		e.cfg.KDJPeriod,
		e.cfg.BollPeriod,
	} {
		if c > w {
			w = c
		}
	}
	return w
}

// ComputeIncremental computes and persists indicator records for every bar
// of the symbol that has no complete record yet. It returns the number of
// dates that gained a record they did not have before; re-running with no
// new bars returns zero.
func (e *Engine) ComputeIncremental(ctx context.Context, symbol string) (int, error) {
	lastComplete, hasComplete, err := e.records.LatestCompleteDate(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("ComputeIncremental %s: %w", symbol, err)
	}
	latestAny, hasAny, err := e.records.LatestDate(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("ComputeIncremental %s: %w", symbol, err)
	}

	var pending []models.Bar
	if hasComplete {
		pending, err = e.bars.GetBars(ctx, symbol, bars.Query{
			Start: lastComplete.AddDate(0, 0, 1),
			Order: bars.Asc,
		})
	} else {
		pending, err = e.bars.GetBars(ctx, symbol, bars.Query{Order: bars.Asc})
	}
	if err != nil {
		return 0, fmt.Errorf("ComputeIncremental %s: %w", symbol, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	maxWin := e.maxWindow()
	lookback := maxWin * e.cfg.LookbackFactor

	// Pull trailing history before the first pending bar so the warmup of
	// every indicator has converged by the time the pending range starts.
	var history []models.Bar
	if hasComplete {
		history, err = e.fetchHistory(ctx, symbol, lastComplete, lookback)
		if err != nil {
			return 0, fmt.Errorf("ComputeIncremental %s: %w", symbol, err)
		}
		if len(history)+len(pending) < maxWin {
			// Extend the lookback once before giving up on full coverage.
			history, err = e.fetchHistory(ctx, symbol, lastComplete, lookback*2)
			if err != nil {
				return 0, fmt.Errorf("ComputeIncremental %s: %w", symbol, err)
			}
		}
	}
	merged := append(history, pending...)

	if len(merged) < maxWin {
		e.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"bars":   len(merged),
			"need":   maxWin,
		}).Warn("insufficient history, storing partial indicator records")
	}

	isST := e.isSpecialTreatment(ctx, symbol, merged)
	records := e.computeRecords(symbol, merged, isST)

	// Only dates after the last complete record are written; everything
	// before it is already stored with identical values.
	cut := len(history)
	toWrite := records[cut:]
	if err := e.records.UpsertRecords(ctx, toWrite); err != nil {
		return 0, fmt.Errorf("ComputeIncremental %s: %w", symbol, err)
	}

	written := 0
	for _, rec := range toWrite {
		if !hasAny || rec.Date.After(latestAny) {
			written++
		}
	}

	e.log.WithFields(logrus.Fields{
		"symbol":  symbol,
		"new":     written,
		"updated": len(toWrite) - written,
	}).Debug("indicator records upserted")

	return written, nil
}

// fetchHistory returns up to limit bars ending at cutoff, ascending.
func (e *Engine) fetchHistory(ctx context.Context, symbol string, cutoff time.Time, limit int) ([]models.Bar, error) {
	hist, err := e.bars.GetBars(ctx, symbol, bars.Query{
		End:   cutoff,
		Limit: limit,
		Order: bars.Desc,
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(hist)-1; i < j; i, j = i+1, j-1 {
		hist[i], hist[j] = hist[j], hist[i]
	}
	return hist, nil
}

// isSpecialTreatment resolves the ST flag from symbol reference data,
// falling back to the latest bar when no reference row exists.
func (e *Engine) isSpecialTreatment(ctx context.Context, symbol string, merged []models.Bar) bool {
	if e.symbols != nil {
		info, err := e.symbols.GetSymbolInfo(ctx, symbol)
		if err == nil && info != nil {
			return info.IsST
		}
	}
	if len(merged) > 0 {
		return merged[len(merged)-1].IsST
	}
	return false
}

// computeRecords runs every configured indicator over the merged bar slice
// and assembles one record per bar. An indicator whose input contains a
// non-finite value is skipped entirely for this symbol, leaving its columns
// null, so one corrupt field cannot poison neighbouring indicators.
func (e *Engine) computeRecords(symbol string, merged []models.Bar, isST bool) []models.IndicatorRecord {
	n := len(merged)
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i, b := range merged {
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
	}

	priceOK := finite(high) && finite(low) && finite(close)
	closeOK := finite(close)
	if !priceOK {
		e.log.WithField("symbol", symbol).Warn("non-finite price data, price-based indicators skipped")
	}

	cciPeriod, cciConst := e.cfg.CCIPeriod, e.cfg.CCIConstant
	if isST {
		cciPeriod, cciConst = e.cfg.CCIPeriodST, e.cfg.CCIConstantST
	}

	cci := nanSlice(n)
	kdjK, kdjD, kdjJ := nanSlice(n), nanSlice(n), nanSlice(n)
	if priceOK {
		cci = CCI(high, low, close, cciPeriod, cciConst)
		kdjK, kdjD, kdjJ = KDJ(high, low, close, e.cfg.KDJPeriod, e.cfg.KDJKSmooth, e.cfg.KDJDSmooth)
	}

	rsi := nanSlice(n)
	macdLine, macdSig, macdHist := nanSlice(n), nanSlice(n), nanSlice(n)
	bollUp, bollMid, bollLow := nanSlice(n), nanSlice(n), nanSlice(n)
	if closeOK {
		rsi = RSI(close, e.cfg.RSIPeriod)
		macdLine, macdSig, macdHist = MACD(close, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
		bollUp, bollMid, bollLow = Bollinger(close, e.cfg.BollPeriod, e.cfg.BollMultiplier)
	}

	records := make([]models.IndicatorRecord, n)
	for i, b := range merged {
		records[i] = models.IndicatorRecord{
			Symbol:      symbol,
			Date:        b.Date,
			CCI:         ptr(cci[i]),
			CCIPeriod:   cciPeriod,
			CCIConstant: cciConst,
			RSI:         ptr(rsi[i]),
			MACDLine:    ptr(macdLine[i]),
			MACDSignal:  ptr(macdSig[i]),
			MACDHist:    ptr(macdHist[i]),
			KDJK:        ptr(kdjK[i]),
			KDJD:        ptr(kdjD[i]),
			KDJJ:        ptr(kdjJ[i]),
			BollUpper:   ptr(bollUp[i]),
			BollMiddle:  ptr(bollMid[i]),
			BollLower:   ptr(bollLow[i]),
		}
	}
	return records
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

package strategy

import (
	"sync"

	"github.com/sirupsen/logrus"

	models "strongk-quant/database/models_pkg"
)

// Config selects the variant and its parameters
type Config struct {
	Kind             Kind
	Breakout         BreakoutParams
	Confirmation     ConfirmationParams
	Reversal         ReversalParams
	MaxOpenPositions int
}

// DefaultConfig returns a runner config with stock parameters for every
// variant
func DefaultConfig(kind Kind) Config {
	return Config{
		Kind:             kind,
		Breakout:         DefaultBreakoutParams(),
		Confirmation:     DefaultConfirmationParams(),
		Reversal:         DefaultReversalParams(),
		MaxOpenPositions: 10,
	}
}

// Runner owns the per-symbol strategy state and evaluates one variant over
// bar series. Evaluation is serialized under one lock: the open-position
// count gates entries across symbols, so two symbols cannot be walked at
// the same time.
type Runner struct {
	mu     sync.Mutex
	cfg    Config
	states map[string]*State
	log    *logrus.Logger
}

// NewRunner creates a strategy runner. MaxOpenPositions caps concurrent
// positions across symbols; a cap of zero (or less) permits no new entries,
// which backtests use to replay exits only.
func NewRunner(cfg Config, log *logrus.Logger) *Runner {
	if cfg.MaxOpenPositions < 0 {
		cfg.MaxOpenPositions = 0
	}
	return &Runner{
		cfg:    cfg,
		states: make(map[string]*State),
		log:    log,
	}
}

// Kind returns the variant this runner evaluates
func (r *Runner) Kind() Kind {
	return r.cfg.Kind
}

// State returns the current state for a symbol, or nil if the symbol has
// never been evaluated.
func (r *Runner) State(symbol string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[symbol]
}

// OpenPositions returns every position currently held across symbols
func (r *Runner) OpenPositions() []Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []Position
	for _, st := range r.states {
		if st.Position != nil {
			open = append(open, *st.Position)
		}
	}
	return open
}

func (r *Runner) openCount() int {
	n := 0
	for _, st := range r.states {
		if st.Position != nil {
			n++
		}
	}
	return n
}

// GenerateSignals walks the symbol's bars in ascending date order and emits
// the ordered signals the configured variant produces. The symbol's state is
// reset at the start of the walk so repeated evaluation over the same bars
// is deterministic.
func (r *Runner) GenerateSignals(symbol string, bars []models.Bar) []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := newState()
	r.states[symbol] = st

	var signals []Signal
	switch r.cfg.Kind {
	case KindBreakout:
		signals = r.evalBreakout(symbol, bars, st)
	case KindConfirmation:
		signals = r.evalConfirmation(symbol, bars, st)
	case KindReversal:
		signals = r.evalReversal(symbol, bars, st)
	}

	if len(signals) > 0 {
		r.log.WithFields(logrus.Fields{
			"symbol":   symbol,
			"strategy": r.cfg.Kind.String(),
			"signals":  len(signals),
		}).Info("strategy signals generated")
	}
	return signals
}

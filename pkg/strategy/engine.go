package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// GameSource is the subset of pkg/aggregator.Aggregator the Engine reads
// snapshots from, decoupled the same way pkg/aggregator decouples from its
// own upstream clients.
type GameSource interface {
	GetAllGameStates() map[string]*model.GameState
}

// SignalHandler receives a strategy's emitted signal, tagged with the game
// it was generated for. Handler errors are caught and logged; they never
// stop delivery to the remaining handlers.
type SignalHandler func(ctx context.Context, gameID string, signal model.TradeSignal) error

// Config tunes the Engine's background evaluation loop.
type Config struct {
	EvalInterval time.Duration
}

// DefaultConfig matches spec.md's suggested strategy_eval_interval.
func DefaultConfig() Config {
	return Config{EvalInterval: 5 * time.Second}
}

// Engine owns the loaded strategy instances and the background loop that
// evaluates every loaded game against every enabled strategy. Grounded on
// pkg/trader/orchestrator/orchestrator.go's ticker+stopCh supervising-loop
// shape.
type Engine struct {
	cfg    Config
	log    zerolog.Logger
	source GameSource

	mu          sync.RWMutex
	strategies  map[string]Strategy
	typeToID    map[string]string // strategy type -> currently-loaded instance id

	handlersMu sync.Mutex
	handlers   []SignalHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Engine reading snapshots from source.
func New(cfg Config, source GameSource, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		log:        log.With().Str("component", "strategy").Logger(),
		source:     source,
		strategies: make(map[string]Strategy),
		typeToID:   make(map[string]string),
	}
}

// constructors maps a strategy type name to its factory, used by
// LoadStrategy when the caller doesn't hand in an already-built instance.
var constructors = map[string]func(id string) Strategy{
	"sharp_line":    func(id string) Strategy { return NewSharpLine(id, DefaultSharpLineConfig()) },
	"momentum":      func(id string) Strategy { return NewMomentum(id, DefaultMomentumConfig()) },
	"ev_multibook":  func(id string) Strategy { return NewEVMultiBook(id, DefaultEVMultiBookConfig()) },
	"mean_reversion": func(id string) Strategy { return NewMeanReversion(id, DefaultMeanReversionConfig()) },
	"correlation":   func(id string) Strategy { return NewCorrelation(id, DefaultCorrelationConfig()) },
}

// LoadStrategy builds (or idempotently reloads) a strategy instance of
// strategyType. If id is empty, strategyType is used as the instance id.
// A prior instance of the same type is unloaded first, so duplicate
// signals from two instances of one algorithm can never happen. If cfg is
// non-nil it's applied via UpdateConfig before the strategy is (optionally)
// enabled.
func (e *Engine) LoadStrategy(strategyType, id string, cfg any, enable bool) (Strategy, error) {
	ctor, ok := constructors[strategyType]
	if !ok {
		return nil, fmt.Errorf("unknown strategy type %q", strategyType)
	}
	if id == "" {
		id = strategyType
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prevID, ok := e.typeToID[strategyType]; ok {
		delete(e.strategies, prevID)
	}

	s := ctor(id)
	if cfg != nil {
		if err := s.UpdateConfig(cfg); err != nil {
			return nil, err
		}
	}
	if enable {
		s.Enable()
	}

	e.strategies[id] = s
	e.typeToID[strategyType] = id
	e.log.Info().Str("strategy_id", id).Str("type", strategyType).Msg("strategy loaded")
	return s, nil
}

// UnloadStrategy removes a loaded strategy instance.
func (e *Engine) UnloadStrategy(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.strategies[id]
	if !ok {
		return
	}
	delete(e.strategies, id)
	if e.typeToID[s.Type()] == id {
		delete(e.typeToID, s.Type())
	}
}

// GetStrategy returns a loaded strategy instance, or nil if id isn't
// loaded.
func (e *Engine) GetStrategy(id string) Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.strategies[id]
}

// GetAllStrategies returns every loaded strategy instance.
func (e *Engine) GetAllStrategies() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		out = append(out, s)
	}
	return out
}

// EnableStrategy enables a loaded strategy instance.
func (e *Engine) EnableStrategy(id string) error {
	s := e.GetStrategy(id)
	if s == nil {
		return fmt.Errorf("strategy %q not loaded", id)
	}
	s.Enable()
	return nil
}

// DisableStrategy disables a loaded strategy instance.
func (e *Engine) DisableStrategy(id string) error {
	s := e.GetStrategy(id)
	if s == nil {
		return fmt.Errorf("strategy %q not loaded", id)
	}
	s.Disable()
	return nil
}

// UpdateStrategyConfig applies cfg to a loaded strategy instance.
func (e *Engine) UpdateStrategyConfig(id string, cfg any) error {
	s := e.GetStrategy(id)
	if s == nil {
		return fmt.Errorf("strategy %q not loaded", id)
	}
	return s.UpdateConfig(cfg)
}

// AddSignalHandler registers a handler invoked for every emitted signal.
func (e *Engine) AddSignalHandler(h SignalHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, h)
}

// EvaluateGame runs every enabled strategy against one game snapshot,
// delivering each emitted signal to every registered handler. Strategy
// panics/errors never stop evaluation of the remaining strategies.
func (e *Engine) EvaluateGame(ctx context.Context, gameID string, snapshot *model.GameState) []model.TradeSignal {
	e.mu.RLock()
	strategies := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		strategies = append(strategies, s)
	}
	e.mu.RUnlock()

	var all []model.TradeSignal
	for _, s := range strategies {
		signals := e.safeEvaluate(s, snapshot)
		for _, sig := range signals {
			all = append(all, sig)
			e.deliver(ctx, gameID, sig)
		}
	}
	return all
}

func (e *Engine) safeEvaluate(s Strategy, snapshot *model.GameState) (signals []model.TradeSignal) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("strategy_id", s.ID()).Msg("strategy evaluate panicked")
			signals = nil
		}
	}()
	if !s.IsEnabled() {
		return nil
	}
	return s.Evaluate(snapshot)
}

func (e *Engine) deliver(ctx context.Context, gameID string, sig model.TradeSignal) {
	e.handlersMu.Lock()
	handlers := append([]SignalHandler(nil), e.handlers...)
	e.handlersMu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error().Interface("panic", r).Msg("signal handler panicked")
				}
			}()
			if err := h(ctx, gameID, sig); err != nil {
				e.log.Error().Err(err).Str("market_ticker", sig.MarketTicker).Msg("signal handler failed")
			}
		}()
	}
}

// EvaluateAllGames runs EvaluateGame for every game currently loaded in
// GameSource. Returns true if at least one strategy is enabled (mirroring
// spec.md's "if any strategy is enabled" background-loop gate).
func (e *Engine) EvaluateAllGames(ctx context.Context) bool {
	if !e.anyEnabled() {
		return false
	}
	for gameID, snapshot := range e.source.GetAllGameStates() {
		e.EvaluateGame(ctx, gameID, snapshot)
	}
	return true
}

func (e *Engine) anyEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.strategies {
		if s.IsEnabled() {
			return true
		}
	}
	return false
}

// Start launches the supervising evaluation loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loop(ctx)
	}()
}

// Stop cancels the evaluation loop and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) loop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvaluateAllGames(ctx)
		}
	}
}

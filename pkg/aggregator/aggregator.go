// Package aggregator owns per-game state: the Data Aggregator of the
// paper-trading engine. It loads games from a durable record, refreshes
// them from the exchange/sports/odds REST APIs on a 1Hz scheduler, streams
// orderbook updates over a socket, and publishes events to subscribers.
// Grounded on pkg/trader/orchestrator/orchestrator.go's lifecycle shape
// (load/unload registry, start/stop supervising goroutines) and
// pkg/polymarket/book/orderbook.go's level-aggregation approach, adapted
// from Polymarket's bid/ask price-level book to the exchange's additive
// delta protocol.
package aggregator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// EventKind tags a pub/sub notification.
type EventKind string

const (
	EventOrderbookUpdate EventKind = "OrderbookUpdate"
	EventSportsUpdate    EventKind = "SportsUpdate"
	EventOddsUpdate      EventKind = "OddsUpdate"
	EventStateChange     EventKind = "StateChange"
	EventGameLoaded      EventKind = "GameLoaded"
	EventGameUnloaded    EventKind = "GameUnloaded"
)

// Subscriber receives per-game notifications. Delivery is in-order per game
// and best-effort; a slow or failing subscriber must not block others.
type Subscriber func(gameID string, snapshot *model.GameState, kind EventKind)

// GameRecord is the durable record load_game reads to populate identity.
type GameRecord struct {
	GameID         string         `json:"game_id"`
	EventTicker    string         `json:"event_ticker"`
	HomeTeam       string         `json:"home_team"`
	AwayTeam       string         `json:"away_team"`
	ScheduledStart time.Time      `json:"scheduled_start"`
	Status         string         `json:"status"`
	LiveSportsID   string         `json:"live_sports_id"` // empty if this game has no live-sports feed
	Markets        []MarketRecord `json:"markets"`
}

// MarketRecord is one exchange market belonging to a GameRecord.
type MarketRecord struct {
	Ticker      string
	MarketType  model.MarketType
	StrikeValue *decimal.Decimal
	TeamSide    string
}

// Store is the durable-record dependency load_game reads from.
type Store interface {
	GetGameRecord(ctx context.Context, gameID string) (*GameRecord, error)
	SaveLiveSportsSnapshot(ctx context.Context, gameID string, snapshot *model.LiveSportsState) error
}

// ExchangeClient is the subset of pkg/exchange.Client the Aggregator needs.
type ExchangeClient interface {
	GetMarketOrderbook(ctx context.Context, ticker string, depth int) (OrderbookTop, error)
}

// OrderbookTop is the exchange top-of-book response shape the Aggregator
// consumes (decoupled from pkg/exchange's wire type so this package can be
// tested without importing the HTTP client).
type OrderbookTop struct {
	YesBid, YesAsk, NoBid, NoAsk           decimal.Decimal
	YesBidSize, YesAskSize, NoBidSize, NoAskSize decimal.Decimal
}

// SportsClient is the subset of pkg/sportsdata.Client the Aggregator needs.
type SportsClient interface {
	GetBoxScoresLive(ctx context.Context) ([]BoxScore, error)
	GetBoxScore(ctx context.Context, gameID string) (*BoxScore, error)
}

// BoxScore mirrors pkg/sportsdata.BoxScore, decoupled the same way as
// OrderbookTop.
type BoxScore struct {
	GameID        string
	Status        string
	Period        int
	TimeRemaining string
	HomeScore     int
	AwayScore     int
}

// OddsClient is the subset of pkg/oddsdata.Client the Aggregator needs.
type OddsClient interface {
	GetOdds(ctx context.Context, gameID string) ([]VendorOdds, error)
}

// VendorOdds mirrors pkg/oddsdata.OddsRecord.
type VendorOdds struct {
	Vendor         string
	HomeMoneyline  *int
	AwayMoneyline  *int
	SpreadValue    *decimal.Decimal
	SpreadHomeOdds *int
	SpreadAwayOdds *int
	TotalValue     *decimal.Decimal
	OverOdds       *int
	UnderOdds      *int
}

// Config tunes the scheduler and refresh behavior.
type Config struct {
	SportsIntervalTicks  int // refresh live sports every N ticks for Live games
	OddsIntervalTicks    int // refresh odds every N ticks for Live games
	ScheduledPollMultiple int // poll Scheduled games every N x sports interval
	OrderbookDepth       int
}

// DefaultConfig matches spec.md's suggested tick intervals.
func DefaultConfig() Config {
	return Config{
		SportsIntervalTicks:   10,
		OddsIntervalTicks:     30,
		ScheduledPollMultiple: 6,
		OrderbookDepth:        10,
	}
}

// Aggregator owns per-game state and the refresh/streaming loops that keep
// it current.
type Aggregator struct {
	cfg Config
	log zerolog.Logger

	store    Store
	exchange ExchangeClient
	sports   SportsClient
	odds     OddsClient
	socket   *socketClient

	mu            sync.RWMutex
	gameStates    map[string]*model.GameState
	tickerToGame  map[string]string

	subsMu      sync.Mutex
	subscribers map[int]Subscriber
	nextSubID   int

	running   atomicBool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	ticks     int
}

// New builds an Aggregator. socketURL may be empty to disable the streaming
// path (REST-only operation).
func New(cfg Config, store Store, exchange ExchangeClient, sports SportsClient, odds OddsClient, socketURL string, log zerolog.Logger) *Aggregator {
	a := &Aggregator{
		cfg:          cfg,
		log:          log.With().Str("component", "aggregator").Logger(),
		store:        store,
		exchange:     exchange,
		sports:       sports,
		odds:         odds,
		gameStates:   make(map[string]*model.GameState),
		tickerToGame: make(map[string]string),
		subscribers:  make(map[int]Subscriber),
	}
	if socketURL != "" {
		a.socket = newSocketClient(socketURL, a, log)
	}
	return a
}

// LoadGame reads the durable record, refreshes exchange orderbooks (and
// sports/odds if a live-sports id is present), and emits GameLoaded.
// Idempotent: a second call on an already-loaded game returns the existing
// state.
func (a *Aggregator) LoadGame(ctx context.Context, gameID string) (*model.GameState, error) {
	a.mu.RLock()
	if existing, ok := a.gameStates[gameID]; ok {
		snap := existing.Snapshot()
		a.mu.RUnlock()
		return snap, nil
	}
	a.mu.RUnlock()

	record, err := a.store.GetGameRecord(ctx, gameID)
	if err != nil {
		return nil, err
	}

	state := model.NewGameState(record.GameID, record.EventTicker, record.HomeTeam, record.AwayTeam, record.ScheduledStart)
	state.Phase = statusToPhase(record.Status)
	state.IsActive = state.Phase == model.PhaseLive || state.Phase == model.PhaseHalftime
	for _, m := range record.Markets {
		state.Markets[m.Ticker] = &model.MarketState{
			Ticker:      m.Ticker,
			MarketType:  m.MarketType,
			StrikeValue: m.StrikeValue,
			TeamSide:    m.TeamSide,
		}
	}
	if record.LiveSportsID != "" {
		state.LiveSports = &model.LiveSportsState{Status: record.Status}
	}

	a.mu.Lock()
	a.gameStates[gameID] = state
	for ticker := range state.Markets {
		a.tickerToGame[ticker] = gameID
	}
	a.mu.Unlock()

	a.refreshExchangeOrderbooks(ctx, gameID)
	if record.LiveSportsID != "" {
		a.refreshLiveSports(ctx, gameID)
		a.refreshOdds(ctx, gameID, record.LiveSportsID)
	}

	a.publish(gameID, EventGameLoaded)
	return a.GetGameState(gameID), nil
}

// UnloadGame removes a game's state and its ticker index entries, and emits
// GameUnloaded.
func (a *Aggregator) UnloadGame(gameID string) {
	a.mu.Lock()
	state, ok := a.gameStates[gameID]
	if !ok {
		a.mu.Unlock()
		return
	}
	for ticker := range state.Markets {
		delete(a.tickerToGame, ticker)
	}
	delete(a.gameStates, gameID)
	a.mu.Unlock()

	a.publish(gameID, EventGameUnloaded)
}

// GetGameState returns a read-only snapshot, or nil if gameID isn't loaded.
func (a *Aggregator) GetGameState(gameID string) *model.GameState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	state, ok := a.gameStates[gameID]
	if !ok {
		return nil
	}
	return state.Snapshot()
}

// GetAllGameStates returns a snapshot of every loaded game.
func (a *Aggregator) GetAllGameStates() map[string]*model.GameState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]*model.GameState, len(a.gameStates))
	for id, state := range a.gameStates {
		out[id] = state.Snapshot()
	}
	return out
}

// Subscribe registers cb for per-game event notifications and returns an id
// for Unsubscribe.
func (a *Aggregator) Subscribe(cb Subscriber) int {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = cb
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (a *Aggregator) Unsubscribe(id int) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	delete(a.subscribers, id)
}

// publish notifies every subscriber in order, catching and logging panics
// or the subscriber taking too long is not itself bounded here — spec.md
// only requires that a failing subscriber not block others, which the
// per-subscriber recover() below satisfies.
func (a *Aggregator) publish(gameID string, kind EventKind) {
	snapshot := a.GetGameState(gameID)

	a.subsMu.Lock()
	subs := make([]Subscriber, 0, len(a.subscribers))
	for _, cb := range a.subscribers {
		subs = append(subs, cb)
	}
	a.subsMu.Unlock()

	for _, cb := range subs {
		a.safeNotify(cb, gameID, snapshot, kind)
	}
}

func (a *Aggregator) safeNotify(cb Subscriber, gameID string, snapshot *model.GameState, kind EventKind) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Str("game_id", gameID).Msg("subscriber panicked")
		}
	}()
	cb(gameID, snapshot, kind)
}

// Start launches the 1Hz scheduler (and the socket streaming path, if
// configured) as supervised goroutines.
func (a *Aggregator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running.set(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.schedulerLoop(gctx)
		return nil
	})
	if a.socket != nil {
		g.Go(func() error {
			a.socket.run(gctx)
			return nil
		})
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = g.Wait()
	}()
	return nil
}

// Stop cancels the scheduler and socket tasks and waits for them to exit.
func (a *Aggregator) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.running.set(false)
	a.wg.Wait()
}

func statusToPhase(status string) model.Phase {
	switch strings.ToLower(status) {
	case "scheduled", "":
		return model.PhaseScheduled
	case "in_progress", "live", "1st qtr", "2nd qtr", "3rd qtr", "4th qtr":
		return model.PhaseLive
	case "halftime":
		return model.PhaseHalftime
	case "final", "finished":
		return model.PhaseFinished
	case "cancelled", "postponed":
		return model.PhaseCancelled
	default:
		return model.PhaseScheduled
	}
}

// atomicBool is a tiny mutex-guarded flag for Start/Stop state, avoiding a
// sync/atomic.Bool import for a single field.
type atomicBool struct {
	mu sync.Mutex
	v  bool
}

func (a *atomicBool) set(v bool) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

func (a *atomicBool) get() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}

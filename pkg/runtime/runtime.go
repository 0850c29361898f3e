// Package runtime wires every other package into one process: the
// upstream clients, the Aggregator/Strategy/Risk/Execution pipeline, the
// store, metrics, and the HTTP/WebSocket control surface. Grounded on
// cmd/agentd/main.go's newAgent()/tradingAgent struct, which owns the
// same kind of construct-everything-then-supervise-the-loops lifecycle.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/aggregator"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/config"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/control"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/exchange"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/execution"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/metrics"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/oddsdata"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/risk"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/sportsdata"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/store"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/strategy"
)

// Runtime owns every long-lived component and the goroutines supervising
// them.
type Runtime struct {
	cfg *config.Config
	log zerolog.Logger

	store      *store.Store
	aggregator *aggregator.Aggregator
	strategies *strategy.Engine
	risk       *risk.Manager
	execution  *execution.Engine
	metrics    *metrics.TradingMetrics
	hub        *control.Hub
	httpServer *http.Server

	cancel context.CancelFunc
}

// New constructs every component and wires their callbacks together. It
// does not start any background loop; call Start for that.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Runtime, error) {
	st, err := store.Open(ctx, store.Config{DSN: cfg.DatabaseURL, MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}, log)
	if err != nil {
		return nil, fmt.Errorf("runtime: open store: %w", err)
	}

	signer, err := exchange.NewSigner(cfg.ExchangeAPIKeyID, []byte(cfg.ExchangePrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("runtime: build exchange signer: %w", err)
	}
	exchangeClient := exchange.NewClient(signer, exchange.WithBaseURL(cfg.ExchangeBaseURL))
	sportsClient := sportsdata.NewClient(cfg.SportsBaseURL, cfg.SportsAPIKey)
	oddsClient := oddsdata.NewClient(cfg.OddsBaseURL, cfg.OddsAPIKey)

	agg := aggregator.New(
		aggregator.DefaultConfig(),
		st,
		newExchangeAdapter(exchangeClient),
		newSportsAdapter(sportsClient),
		newOddsAdapter(oddsClient),
		cfg.ExchangeSocketURL,
		log,
	)

	riskMgr := risk.NewManager(risk.DefaultLimits(), log)
	strategyEngine := strategy.New(strategy.DefaultConfig(), agg, log)
	execEngine := execution.New(execution.DefaultConfig(), agg, newRiskAdapter(riskMgr), st, log)

	m := metrics.New()
	hub := control.NewHub(log)

	rt := &Runtime{
		cfg:        cfg,
		log:        log.With().Str("component", "runtime").Logger(),
		store:      st,
		aggregator: agg,
		strategies: strategyEngine,
		risk:       riskMgr,
		execution:  execEngine,
		metrics:    m,
		hub:        hub,
	}
	rt.wireCallbacks()

	srv := control.NewServer(control.Config{
		Aggregator: agg,
		Strategies: strategyEngine,
		Risk:       riskMgr,
		Execution:  execEngine,
		Games:      st,
		DB:         st,
		Metrics:    m,
		Hub:        hub,
		Log:        log,
	})
	rt.httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}

	return rt, nil
}

// wireCallbacks connects the Aggregator's pub/sub and the Strategy/
// Execution engines' callbacks to each other and to the WebSocket hub and
// metrics, closing the loop spec.md §4 describes: aggregator refresh ->
// strategy evaluation -> execution -> risk bookkeeping -> broadcast.
func (rt *Runtime) wireCallbacks() {
	rt.aggregator.Subscribe(func(gameID string, snapshot *model.GameState, kind aggregator.EventKind) {
		if snapshot == nil {
			return
		}
		rt.hub.Broadcast(control.Event{Type: control.EventTypeGameState, Data: map[string]any{"game_id": gameID, "state": snapshot}})

		ctx := context.Background()
		signals := rt.strategies.EvaluateGame(ctx, gameID, snapshot)
		for _, sig := range signals {
			rt.metrics.RecordSignal(sig.StrategyID, string(sig.Side))
			rt.hub.Broadcast(control.Event{Type: control.EventTypeSignal, Data: map[string]any{"game_id": gameID, "signal": sig}})
			rt.execution.ExecuteSignal(ctx, sig, gameID)
		}
	})

	rt.execution.AddExecutionCallback(func(order *model.Order, result execution.Result) {
		fillAmount := 0.0
		if order.FilledPrice != nil {
			fillAmount = metrics.DecimalToFloat64(*order.FilledPrice) * float64(order.Quantity) / 100
		}
		rt.metrics.RecordOrder(string(order.Side), string(order.Status), fillAmount)
		if !result.Success {
			rt.metrics.RecordRiskRejection("execute_signal")
		}
		rt.hub.Broadcast(control.Event{Type: control.EventTypeOrder, Data: map[string]any{"game_id": order.GameID, "result": result}})
	})
}

// Start launches the Aggregator, Strategy Engine, WebSocket hub, and HTTP
// server as supervised goroutines, and blocks until ctx is canceled or one
// of them fails.
func (rt *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel

	if err := rt.aggregator.Start(ctx); err != nil {
		return fmt.Errorf("runtime: start aggregator: %w", err)
	}
	rt.strategies.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.hub.Run(gctx.Done())
		return nil
	})
	g.Go(func() error {
		rt.log.Info().Str("addr", rt.cfg.HTTPAddr).Msg("control surface listening")
		if err := rt.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("runtime: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return rt.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Stop cancels every supervised loop and waits for the Aggregator and
// Strategy Engine to exit.
func (rt *Runtime) Stop() {
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.aggregator.Stop()
	rt.strategies.Stop()
}

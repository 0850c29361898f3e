package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/wsconn"
)

// socketClient wraps wsconn.Client with the exchange orderbook socket's
// message protocol: subscribe to every known ticker, apply snapshot/delta
// messages to the owning game's MarketState, and resubscribe on reconnect.
type socketClient struct {
	url string
	agg *Aggregator
	log zerolog.Logger
	ws  *wsconn.Client
}

func newSocketClient(url string, agg *Aggregator, log zerolog.Logger) *socketClient {
	return &socketClient{url: url, agg: agg, log: log.With().Str("component", "aggregator_socket").Logger()}
}

func (s *socketClient) run(ctx context.Context) {
	s.ws = wsconn.NewClient(wsconn.DefaultConfig(s.url), wsconn.Handlers{
		OnMessage:   s.handleMessage,
		OnReconnect: s.resubscribe,
		OnError: func(err error) {
			s.log.Warn().Err(err).Msg("socket error")
		},
	}, s.log)

	if err := s.ws.Connect(ctx); err != nil {
		s.log.Error().Err(err).Msg("initial socket connect failed")
		return
	}
	if err := s.subscribeAll(); err != nil {
		s.log.Error().Err(err).Msg("initial subscribe failed")
	}

	<-ctx.Done()
	s.ws.Close()
}

func (s *socketClient) subscribeAll() error {
	s.agg.mu.RLock()
	tickers := make([]string, 0, len(s.agg.tickerToGame))
	for ticker := range s.agg.tickerToGame {
		tickers = append(tickers, ticker)
	}
	s.agg.mu.RUnlock()

	if len(tickers) == 0 {
		return nil
	}
	return s.ws.SendJSON(subscribeCommand(tickers))
}

func (s *socketClient) resubscribe(ctx context.Context) error {
	return s.subscribeAll()
}

func subscribeCommand(tickers []string) map[string]any {
	return map[string]any{
		"id":  1,
		"cmd": "subscribe",
		"params": map[string]any{
			"channels":       []string{"orderbook_delta", "ticker"},
			"market_tickers": tickers,
		},
	}
}

type socketEnvelope struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

func (s *socketClient) handleMessage(data []byte) {
	var env socketEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn().Err(err).Msg("malformed socket envelope, skipping")
		return
	}

	switch env.Type {
	case "subscribed":
		// nothing to do

	case "ticker":
		var msg tickerMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			s.log.Warn().Err(err).Msg("malformed ticker message, skipping")
			return
		}
		s.applyTicker(msg)

	case "orderbook_snapshot":
		var msg snapshotMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			s.log.Warn().Err(err).Msg("malformed snapshot message, skipping")
			return
		}
		s.applySnapshot(msg)

	case "orderbook_delta":
		var msg deltaMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			s.log.Warn().Err(err).Msg("malformed delta message, skipping")
			return
		}
		s.applyDelta(msg)

	case "error":
		var msg errorMsg
		_ = json.Unmarshal(env.Msg, &msg)
		s.log.Warn().Str("code", msg.Code).Str("msg", msg.Msg).Msg("socket reported error")

	default:
		s.log.Debug().Str("type", env.Type).Msg("unhandled socket message kind")
	}
}

type tickerMsg struct {
	MarketTicker string `json:"market_ticker"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	NoBid        int    `json:"no_bid"`
	NoAsk        int    `json:"no_ask"`
}

type level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type snapshotMsg struct {
	MarketTicker string  `json:"market_ticker"`
	Yes          []level `json:"yes"`
	No           []level `json:"no"`
}

type deltaEntry struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
}

type deltaMsg struct {
	MarketTicker string       `json:"market_ticker"`
	Side         string       `json:"side"`
	Entries      []deltaEntry `json:"entries"`
}

type errorMsg struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (s *socketClient) gameForTicker(ticker string) (gameID string, ok bool) {
	s.agg.mu.RLock()
	defer s.agg.mu.RUnlock()
	gameID, ok = s.agg.tickerToGame[ticker]
	return
}

func (s *socketClient) applyTicker(msg tickerMsg) {
	gameID, ok := s.gameForTicker(msg.MarketTicker)
	if !ok {
		return
	}

	s.agg.mu.Lock()
	state := s.agg.gameStates[gameID]
	market, ok := state.Markets[msg.MarketTicker]
	if !ok {
		s.agg.mu.Unlock()
		return
	}
	if market.Orderbook == nil {
		market.Orderbook = &model.OrderbookState{}
	}
	market.Orderbook.YesBid = decimal.NewFromInt(int64(msg.YesBid))
	market.Orderbook.YesAsk = decimal.NewFromInt(int64(msg.YesAsk))
	market.Orderbook.NoBid = decimal.NewFromInt(int64(msg.NoBid))
	market.Orderbook.NoAsk = decimal.NewFromInt(int64(msg.NoAsk))
	market.Orderbook.LastUpdated = time.Now()
	state.LastUpdated = time.Now()
	s.agg.mu.Unlock()

	s.agg.publish(gameID, EventOrderbookUpdate)
}

// applySnapshot replaces the cached book for one ticker with the top level
// of each side of the snapshot (see bookFromLevels).
func (s *socketClient) applySnapshot(msg snapshotMsg) {
	gameID, ok := s.gameForTicker(msg.MarketTicker)
	if !ok {
		return
	}

	s.agg.mu.Lock()
	state := s.agg.gameStates[gameID]
	market, ok := state.Markets[msg.MarketTicker]
	if !ok {
		s.agg.mu.Unlock()
		return
	}
	ob := bookFromLevels(msg.Yes, msg.No)
	market.Orderbook = ob
	state.LastUpdated = time.Now()
	s.agg.mu.Unlock()

	s.agg.publish(gameID, EventOrderbookUpdate)
}

// bookFromLevels builds the top-of-book state from a snapshot's yes/no level
// lists. The exchange's markets are binary and complementary (spec.md §3):
// the best yes ask equals 100 minus the best no bid, and vice versa, so the
// ask side of each leg is derived the same way pkg/runtime/adapters.go
// derives it from the REST orderbook rather than left at its zero value.
// Only the first level of each list is used, taken as that side's best
// price; deeper levels are not kept.
func bookFromLevels(yes, no []level) *model.OrderbookState {
	ob := &model.OrderbookState{LastUpdated: time.Now()}
	if len(yes) > 0 {
		ob.YesBid = yes[0].Price
		ob.YesBidSize = yes[0].Size
	}
	if len(no) > 0 {
		ob.NoBid = no[0].Price
		ob.NoBidSize = no[0].Size
	}
	hundred := decimal.NewFromInt(100)
	ob.YesAsk = hundred.Sub(ob.NoBid)
	ob.YesAskSize = ob.NoBidSize
	ob.NoAsk = hundred.Sub(ob.YesBid)
	ob.NoAskSize = ob.YesBidSize
	return ob
}

// applyDelta applies additive (price, delta) entries, in order, to the
// cached top of book of one side via applyDeltaEntry. Only the best level of
// each side is cached: no price ladder is kept, so levels below the best are
// neither stored nor restored when the best level is removed.
func (s *socketClient) applyDelta(msg deltaMsg) {
	gameID, ok := s.gameForTicker(msg.MarketTicker)
	if !ok {
		return
	}

	s.agg.mu.Lock()
	state := s.agg.gameStates[gameID]
	market, ok := state.Markets[msg.MarketTicker]
	if !ok || market.Orderbook == nil {
		s.agg.mu.Unlock()
		return
	}

	for _, entry := range msg.Entries {
		applyDeltaEntry(market.Orderbook, msg.Side, entry)
	}
	market.Orderbook.LastUpdated = time.Now()
	state.LastUpdated = time.Now()
	s.agg.mu.Unlock()

	s.agg.publish(gameID, EventOrderbookUpdate)
}

// applyDeltaEntry adds entry.Delta to the cached best-level size of side and
// sets that side's best price to entry.Price, whatever price the previous
// best level had (higher or lower). If the resulting size is <= 0, the
// side's bid and size are cleared to zero. Both asks are then re-derived as
// 100 minus the opposing bid.
func applyDeltaEntry(ob *model.OrderbookState, side string, entry deltaEntry) {
	switch side {
	case "yes":
		newSize := ob.YesBidSize.Add(entry.Delta)
		if newSize.LessThanOrEqual(decimal.Zero) {
			ob.YesBid = decimal.Zero
			ob.YesBidSize = decimal.Zero
		} else {
			ob.YesBid = entry.Price
			ob.YesBidSize = newSize
		}
	case "no":
		newSize := ob.NoBidSize.Add(entry.Delta)
		if newSize.LessThanOrEqual(decimal.Zero) {
			ob.NoBid = decimal.Zero
			ob.NoBidSize = decimal.Zero
		} else {
			ob.NoBid = entry.Price
			ob.NoBidSize = newSize
		}
	}

	hundred := decimal.NewFromInt(100)
	ob.YesAsk = hundred.Sub(ob.NoBid)
	ob.YesAskSize = ob.NoBidSize
	ob.NoAsk = hundred.Sub(ob.YesBid)
	ob.NoAskSize = ob.YesBidSize
}

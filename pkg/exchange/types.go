package exchange

import "github.com/shopspring/decimal"

// EventStatus is the lifecycle status reported by exchange_status/list_events.
type EventStatus string

const (
	EventStatusUnopened EventStatus = "unopened"
	EventStatusOpen     EventStatus = "open"
	EventStatusClosed   EventStatus = "closed"
	EventStatusSettled  EventStatus = "settled"
)

// Status is the response of exchange_status.
type Status struct {
	TradingActive bool `json:"trading_active"`
	ExchangeOpen  bool `json:"exchange_active"`
}

// Event is a Kalshi event: a grouping of related markets (one game).
type Event struct {
	EventTicker string   `json:"event_ticker"`
	SeriesTicker string  `json:"series_ticker"`
	Title       string   `json:"title"`
	Status      EventStatus `json:"status"`
	Markets     []Market `json:"markets,omitempty"`
}

// Market is one binary contract.
type Market struct {
	Ticker      string      `json:"ticker"`
	EventTicker string      `json:"event_ticker"`
	Status      EventStatus `json:"status"`
	YesBid      int         `json:"yes_bid"`
	YesAsk      int         `json:"yes_ask"`
	NoBid       int         `json:"no_bid"`
	NoAsk       int         `json:"no_ask"`
}

// OrderbookLevel is one price level on one side of a market's orderbook.
type OrderbookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// Orderbook is the get_market_orderbook response. Depth is vendor-bounded —
// the REST refresh path never assumes depth beyond what is returned.
type Orderbook struct {
	Ticker string           `json:"ticker"`
	Yes    []OrderbookLevel `json:"yes"`
	No     []OrderbookLevel `json:"no"`
}

// ListEventsParams filters list_events.
type ListEventsParams struct {
	Series             string
	Status             EventStatus
	WithNestedMarkets  bool
	Limit              int
	Cursor             string
}

// ListMarketsParams filters list_markets.
type ListMarketsParams struct {
	EventTicker string
	Series      string
	Status      EventStatus
	Limit       int
	Cursor      string
}

// Page is a cursor-paginated response envelope.
type Page[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor"`
}

// Socket command/message shapes, spec.md §6.

// Command is a subscribe/unsubscribe request sent on the orderbook socket.
type Command struct {
	ID     int           `json:"id"`
	Cmd    string        `json:"cmd"` // "subscribe" | "unsubscribe"
	Params CommandParams `json:"params"`
}

// CommandParams names the channels and tickers a Command applies to.
type CommandParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

// MessageKind tags an incoming socket message's type.
type MessageKind string

const (
	MessageSubscribed       MessageKind = "subscribed"
	MessageTicker           MessageKind = "ticker"
	MessageOrderbookSnapshot MessageKind = "orderbook_snapshot"
	MessageOrderbookDelta   MessageKind = "orderbook_delta"
	MessageError            MessageKind = "error"
)

// Envelope is the outer shape of every incoming socket message; the Kind
// field selects how to decode Msg.
type Envelope struct {
	Kind MessageKind     `json:"type"`
	Msg  RawMessage      `json:"msg"`
}

// RawMessage defers decoding of the inner payload until Kind is known.
type RawMessage []byte

// UnmarshalJSON captures the raw inner payload bytes.
func (m *RawMessage) UnmarshalJSON(data []byte) error {
	*m = append((*m)[0:0], data...)
	return nil
}

// TickerMessage is the payload of a "ticker" message: top-of-book update.
type TickerMessage struct {
	MarketTicker string `json:"market_ticker"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	NoBid        int    `json:"no_bid"`
	NoAsk        int    `json:"no_ask"`
}

// OrderbookSnapshotMessage replaces the cached book for one ticker entirely.
type OrderbookSnapshotMessage struct {
	MarketTicker string           `json:"market_ticker"`
	Yes          []OrderbookLevel `json:"yes"`
	No           []OrderbookLevel `json:"no"`
}

// DeltaEntry is one additive price-level change.
type DeltaEntry struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
}

// OrderbookDeltaMessage applies additive deltas to a cached book.
type OrderbookDeltaMessage struct {
	MarketTicker string       `json:"market_ticker"`
	Side         string       `json:"side"` // "yes" | "no"
	Entries      []DeltaEntry `json:"entries"`
}

// ErrorMessage is the payload of an "error" message.
type ErrorMessage struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func decp(v float64) *decimal.Decimal {
	d := dec(v)
	return &d
}

func intp(v int) *int { return &v }

func book(yesBid, yesAsk, noBid, noAsk float64) *model.OrderbookState {
	return &model.OrderbookState{
		YesBid: dec(yesBid), YesAsk: dec(yesAsk),
		NoBid: dec(noBid), NoAsk: dec(noAsk),
		LastUpdated: time.Now(),
	}
}

func newGame(gameID, home, away string) *model.GameState {
	return model.NewGameState(gameID, "EVT", home, away, time.Now())
}

func addMarket(game *model.GameState, ticker string, mtype model.MarketType, teamSide string, ob *model.OrderbookState) {
	game.Markets[ticker] = &model.MarketState{
		Ticker:     ticker,
		MarketType: mtype,
		TeamSide:   teamSide,
		Orderbook:  ob,
	}
}

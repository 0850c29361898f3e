// Adapters bridge each concrete client/manager type to the narrow
// interfaces its consumer package declares, converting between the
// decoupled wire shapes. Grounded on cmd/agentd/main.go's newAgent(),
// which wires pkg/polymarket clients to pkg/trader's narrow interfaces the
// same way.
package runtime

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/aggregator"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/exchange"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/execution"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/oddsdata"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/risk"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/sportsdata"
)

// exchangeAdapter satisfies aggregator.ExchangeClient, deriving top-of-book
// bid/ask from the raw level lists pkg/exchange.Client returns. The
// exchange's markets are binary and complementary (spec.md §3): the best
// yes ask equals 100 minus the best no bid, and vice versa, so the ask
// side of each leg is derived rather than read off a separate book.
type exchangeAdapter struct {
	client *exchange.Client
}

func newExchangeAdapter(c *exchange.Client) *exchangeAdapter { return &exchangeAdapter{client: c} }

func (a *exchangeAdapter) GetMarketOrderbook(ctx context.Context, ticker string, depth int) (aggregator.OrderbookTop, error) {
	book, err := a.client.GetMarketOrderbook(ctx, ticker, depth)
	if err != nil {
		return aggregator.OrderbookTop{}, err
	}

	yesBid, yesBidSize := bestLevel(book.Yes)
	noBid, noBidSize := bestLevel(book.No)

	hundred := decimal.NewFromInt(100)
	return aggregator.OrderbookTop{
		YesBid:     yesBid,
		YesAsk:     hundred.Sub(noBid),
		NoBid:      noBid,
		NoAsk:      hundred.Sub(yesBid),
		YesBidSize: yesBidSize,
		YesAskSize: noBidSize,
		NoBidSize:  noBidSize,
		NoAskSize:  yesBidSize,
	}, nil
}

// bestLevel returns the highest-priced level's price and size, or zero if
// levels is empty.
func bestLevel(levels []exchange.OrderbookLevel) (decimal.Decimal, decimal.Decimal) {
	if len(levels) == 0 {
		return decimal.Zero, decimal.Zero
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l.Price.GreaterThan(best.Price) {
			best = l
		}
	}
	return best.Price, best.Size
}

// sportsAdapter satisfies aggregator.SportsClient; pkg/sportsdata.BoxScore
// is field-for-field identical to aggregator.BoxScore (decoupled on
// purpose so pkg/aggregator never imports pkg/sportsdata).
type sportsAdapter struct {
	client *sportsdata.Client
}

func newSportsAdapter(c *sportsdata.Client) *sportsAdapter { return &sportsAdapter{client: c} }

func (a *sportsAdapter) GetBoxScoresLive(ctx context.Context) ([]aggregator.BoxScore, error) {
	scores, err := a.client.GetBoxScoresLive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]aggregator.BoxScore, len(scores))
	for i, s := range scores {
		out[i] = convertBoxScore(s)
	}
	return out, nil
}

func (a *sportsAdapter) GetBoxScore(ctx context.Context, gameID string) (*aggregator.BoxScore, error) {
	scores, err := a.client.GetBoxScores(ctx, []string{gameID}, "")
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	converted := convertBoxScore(scores[0])
	return &converted, nil
}

func convertBoxScore(s sportsdata.BoxScore) aggregator.BoxScore {
	return aggregator.BoxScore{
		GameID:        s.GameID,
		Status:        s.Status,
		Period:        s.Period,
		TimeRemaining: s.TimeRemaining,
		HomeScore:     s.HomeScore,
		AwayScore:     s.AwayScore,
	}
}

// oddsAdapter satisfies aggregator.OddsClient, narrowing pkg/oddsdata's
// plural-gameIDs query to the single-game lookup the Aggregator makes per
// refresh tick, and widening float64 odds fields to decimal.Decimal.
type oddsAdapter struct {
	client *oddsdata.Client
}

func newOddsAdapter(c *oddsdata.Client) *oddsAdapter { return &oddsAdapter{client: c} }

func (a *oddsAdapter) GetOdds(ctx context.Context, gameID string) ([]aggregator.VendorOdds, error) {
	records, err := a.client.GetOdds(ctx, []string{gameID}, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]aggregator.VendorOdds, len(records))
	for i, r := range records {
		out[i] = aggregator.VendorOdds{
			Vendor:         r.Vendor,
			HomeMoneyline:  r.HomeMoneyline,
			AwayMoneyline:  r.AwayMoneyline,
			SpreadValue:    float64PtrToDecimalPtr(r.SpreadValue),
			SpreadHomeOdds: r.SpreadHomeOdds,
			SpreadAwayOdds: r.SpreadAwayOdds,
			TotalValue:     float64PtrToDecimalPtr(r.TotalValue),
			OverOdds:       r.OverOdds,
			UnderOdds:      r.UnderOdds,
		}
	}
	return out, nil
}

func float64PtrToDecimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// riskAdapter satisfies execution.RiskChecker, converting pkg/risk's
// richer CheckResult (limit type and threshold values, used by the
// control surface and metrics) down to execution's pass/fail-plus-reason
// shape.
type riskAdapter struct {
	manager *risk.Manager
}

func newRiskAdapter(m *risk.Manager) *riskAdapter { return &riskAdapter{manager: m} }

func (a *riskAdapter) CheckOrder(order *model.Order) execution.CheckResult {
	result := a.manager.CheckOrder(order)
	return execution.CheckResult{Approved: result.Approved, Reason: result.Reason}
}

func (a *riskAdapter) RecordOrder(order *model.Order, fillPrice decimal.Decimal) {
	a.manager.RecordOrder(order, fillPrice)
}

func (a *riskAdapter) RecordPnL(pnl decimal.Decimal) { a.manager.RecordPnL(pnl) }

func (a *riskAdapter) RecordPositionClose(marketTicker, gameID string, quantity int) {
	a.manager.RecordPositionClose(marketTicker, gameID, quantity)
}

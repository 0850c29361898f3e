package aggregator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/oddsmath"
)

// refreshExchangeOrderbooks fetches top-of-book for every market in gameID
// and fully replaces the cached orderbook (REST path — never a merge).
func (a *Aggregator) refreshExchangeOrderbooks(ctx context.Context, gameID string) {
	a.mu.RLock()
	state, ok := a.gameStates[gameID]
	if !ok {
		a.mu.RUnlock()
		return
	}
	tickers := make([]string, 0, len(state.Markets))
	for ticker := range state.Markets {
		tickers = append(tickers, ticker)
	}
	a.mu.RUnlock()

	changed := false
	for _, ticker := range tickers {
		top, err := a.exchange.GetMarketOrderbook(ctx, ticker, a.cfg.OrderbookDepth)
		if err != nil {
			a.log.Warn().Err(err).Str("ticker", ticker).Msg("orderbook refresh failed")
			continue
		}

		a.mu.Lock()
		market, ok := state.Markets[ticker]
		if ok {
			market.Orderbook = &model.OrderbookState{
				YesBid: top.YesBid, YesAsk: top.YesAsk,
				NoBid: top.NoBid, NoAsk: top.NoAsk,
				YesBidSize: top.YesBidSize, YesAskSize: top.YesAskSize,
				NoBidSize: top.NoBidSize, NoAskSize: top.NoAskSize,
				LastUpdated: time.Now(),
			}
			mid := market.Orderbook.MidPrice()
			state.ImpliedProbabilities[ticker] = oddsmath.CentsToProb(mid)
			changed = true
		}
		a.mu.Unlock()
	}

	if changed {
		a.mu.Lock()
		state.LastUpdated = time.Now()
		a.mu.Unlock()
		a.publish(gameID, EventOrderbookUpdate)
	}
}

// refreshLiveSports copies scoreboard fields from the matching live box
// score (or falls back to the single-game fetch for phase updates only),
// recomputes phase, persists an append-only snapshot row, and emits
// SportsUpdate.
func (a *Aggregator) refreshLiveSports(ctx context.Context, gameID string) {
	a.mu.RLock()
	state, ok := a.gameStates[gameID]
	a.mu.RUnlock()
	if !ok {
		return
	}

	live, err := a.sports.GetBoxScoresLive(ctx)
	var matched *BoxScore
	if err == nil {
		for i := range live {
			if live[i].GameID == gameID {
				matched = &live[i]
				break
			}
		}
	} else {
		a.log.Warn().Err(err).Str("game_id", gameID).Msg("live box score fetch failed")
	}

	if matched == nil {
		single, err := a.sports.GetBoxScore(ctx, gameID)
		if err != nil {
			a.log.Warn().Err(err).Str("game_id", gameID).Msg("box score fallback fetch failed")
			return
		}
		a.mu.Lock()
		state.Phase = statusToPhase(single.Status)
		state.IsActive = state.Phase == model.PhaseLive || state.Phase == model.PhaseHalftime
		state.LastUpdated = time.Now()
		a.mu.Unlock()
		a.publish(gameID, EventSportsUpdate)
		return
	}

	a.mu.Lock()
	state.LiveSports = &model.LiveSportsState{
		Status:        matched.Status,
		Period:        matched.Period,
		TimeRemaining: matched.TimeRemaining,
		HomeScore:     matched.HomeScore,
		AwayScore:     matched.AwayScore,
		LastUpdated:   time.Now(),
	}
	state.Phase = statusToPhase(matched.Status)
	state.IsActive = state.Phase == model.PhaseLive || state.Phase == model.PhaseHalftime
	state.LastUpdated = time.Now()
	snapshot := *state.LiveSports
	a.mu.Unlock()

	if err := a.store.SaveLiveSportsSnapshot(ctx, gameID, &snapshot); err != nil {
		a.log.Warn().Err(err).Str("game_id", gameID).Msg("persist live sports snapshot failed")
	}
	a.publish(gameID, EventSportsUpdate)
}

// refreshOdds fetches vendor odds rows for liveSportsID, rebuilds the
// per-vendor OddsQuote map, recomputes ConsensusOdds, and emits OddsUpdate.
func (a *Aggregator) refreshOdds(ctx context.Context, gameID, liveSportsID string) {
	a.mu.RLock()
	state, ok := a.gameStates[gameID]
	a.mu.RUnlock()
	if !ok {
		return
	}

	rows, err := a.odds.GetOdds(ctx, liveSportsID)
	if err != nil {
		a.log.Warn().Err(err).Str("game_id", gameID).Msg("odds refresh failed")
		return
	}
	if len(rows) == 0 {
		return
	}

	quotes := make(map[string]*model.OddsQuote, len(rows))
	for _, row := range rows {
		quotes[row.Vendor] = &model.OddsQuote{
			Vendor:         row.Vendor,
			HomeMoneyline:  row.HomeMoneyline,
			AwayMoneyline:  row.AwayMoneyline,
			SpreadValue:    row.SpreadValue,
			SpreadHomeOdds: row.SpreadHomeOdds,
			SpreadAwayOdds: row.SpreadAwayOdds,
			TotalValue:     row.TotalValue,
			OverOdds:       row.OverOdds,
			UnderOdds:      row.UnderOdds,
			LastUpdated:    time.Now(),
		}
	}

	consensus := computeConsensus(rows)

	a.mu.Lock()
	state.Odds = quotes
	state.Consensus = consensus
	state.LastUpdated = time.Now()
	a.mu.Unlock()

	a.publish(gameID, EventOddsUpdate)
}

// computeConsensus implements spec.md 4.2's Odds refresh recipe: moneyline
// consensus via median American odds normalized to sum-to-1 (vig removed),
// spread_line/total_line via median of the vendors' lines, and the same
// vig-removal shape applied to spread/total two-sided odds to resolve
// spread_home_probability/over_probability (the original source declares
// but never computes these fields).
func computeConsensus(rows []VendorOdds) *model.ConsensusOdds {
	var homeOdds, awayOdds []int
	var spreadLines, totalLines []decimal.Decimal
	var spreadHomeOdds, spreadAwayOdds []int
	var overOdds, underOdds []int

	for _, r := range rows {
		if r.HomeMoneyline != nil {
			homeOdds = append(homeOdds, *r.HomeMoneyline)
		}
		if r.AwayMoneyline != nil {
			awayOdds = append(awayOdds, *r.AwayMoneyline)
		}
		if r.SpreadValue != nil {
			spreadLines = append(spreadLines, *r.SpreadValue)
		}
		if r.SpreadHomeOdds != nil {
			spreadHomeOdds = append(spreadHomeOdds, *r.SpreadHomeOdds)
		}
		if r.SpreadAwayOdds != nil {
			spreadAwayOdds = append(spreadAwayOdds, *r.SpreadAwayOdds)
		}
		if r.TotalValue != nil {
			totalLines = append(totalLines, *r.TotalValue)
		}
		if r.OverOdds != nil {
			overOdds = append(overOdds, *r.OverOdds)
		}
		if r.UnderOdds != nil {
			underOdds = append(underOdds, *r.UnderOdds)
		}
	}

	consensus := &model.ConsensusOdds{
		NumSportsbooks: len(rows),
		LastUpdated:    time.Now(),
	}

	if len(homeOdds) > 0 && len(awayOdds) > 0 {
		homeMedian, _ := oddsmath.Consensus(homeOdds, oddsmath.ConsensusMedian)
		awayMedian, _ := oddsmath.Consensus(awayOdds, oddsmath.ConsensusMedian)
		consensus.HomeWinProbability, consensus.AwayWinProbability = oddsmath.RemoveVig(homeMedian, awayMedian)
	}

	if len(spreadLines) > 0 {
		line := medianDecimal(spreadLines)
		consensus.SpreadLine = &line
	}
	if len(spreadHomeOdds) > 0 && len(spreadAwayOdds) > 0 {
		homeMedian, _ := oddsmath.Consensus(spreadHomeOdds, oddsmath.ConsensusMedian)
		awayMedian, _ := oddsmath.Consensus(spreadAwayOdds, oddsmath.ConsensusMedian)
		home, _ := oddsmath.RemoveVig(homeMedian, awayMedian)
		consensus.SpreadHomeProbability = &home
	}

	if len(totalLines) > 0 {
		line := medianDecimal(totalLines)
		consensus.TotalLine = &line
	}
	if len(overOdds) > 0 && len(underOdds) > 0 {
		overMedian, _ := oddsmath.Consensus(overOdds, oddsmath.ConsensusMedian)
		underMedian, _ := oddsmath.Consensus(underOdds, oddsmath.ConsensusMedian)
		over, _ := oddsmath.RemoveVig(overMedian, underMedian)
		consensus.OverProbability = &over
	}

	return consensus
}

func medianDecimal(values []decimal.Decimal) decimal.Decimal {
	sorted := append([]decimal.Decimal(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].GreaterThan(sorted[j]); j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n%2 == 0 {
		return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
	}
	return sorted[n/2]
}

package aggregator

import (
	"context"
	"time"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// schedulerLoop runs the 1-second tick loop described in spec.md 4.2: every
// tick refreshes orderbooks for Live/Halftime games; sports/odds refresh on
// their own slower intervals; Scheduled games are polled at a slower
// multiple to detect tip-off. Errors in one game never halt the loop; an
// unhandled panic at loop level backs off 5 seconds.
func (a *Aggregator) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	sportsCounter := 0
	oddsCounter := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runTickSafely(ctx, &sportsCounter, &oddsCounter)
		}
	}
}

func (a *Aggregator) runTickSafely(ctx context.Context, sportsCounter, oddsCounter *int) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("scheduler tick panicked, backing off 5s")
			time.Sleep(5 * time.Second)
		}
	}()
	a.runTick(ctx, sportsCounter, oddsCounter)
}

func (a *Aggregator) runTick(ctx context.Context, sportsCounter, oddsCounter *int) {
	*sportsCounter = (*sportsCounter + 1) % max1(a.cfg.SportsIntervalTicks)
	*oddsCounter = (*oddsCounter + 1) % max1(a.cfg.OddsIntervalTicks)

	dueSports := *sportsCounter == 0
	dueOdds := *oddsCounter == 0
	a.ticks++
	scheduledPollDue := a.cfg.SportsIntervalTicks > 0 &&
		a.ticks%(a.cfg.SportsIntervalTicks*max1(a.cfg.ScheduledPollMultiple)) == 0

	a.mu.RLock()
	type gameSnapshot struct {
		id           string
		phase        model.Phase
		liveSportsID string
	}
	games := make([]gameSnapshot, 0, len(a.gameStates))
	for id, state := range a.gameStates {
		liveID := ""
		if state.LiveSports != nil {
			liveID = id
		}
		games = append(games, gameSnapshot{id: id, phase: state.Phase, liveSportsID: liveID})
	}
	a.mu.RUnlock()

	for _, g := range games {
		switch g.phase {
		case model.PhaseLive, model.PhaseHalftime:
			a.refreshExchangeOrderbooks(ctx, g.id)
			if dueSports {
				a.refreshLiveSports(ctx, g.id)
			}
			if dueOdds && g.liveSportsID != "" {
				a.refreshOdds(ctx, g.id, g.liveSportsID)
			}
		case model.PhaseScheduled:
			if scheduledPollDue {
				a.refreshLiveSports(ctx, g.id)
			}
		}
	}
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Package oddsmath holds the pure, stateless numeric conversions and sizing
// formulas shared by the Data Aggregator (consensus/vig removal) and the
// Strategy Engine (EV/Kelly). Functions never allocate implicitly and fail
// with a model.CodedError tagged model.CodeBadInput on out-of-range input —
// they never panic and never log.
package oddsmath

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

var (
	zero      = decimal.Zero
	one       = decimal.NewFromInt(1)
	half      = decimal.NewFromFloat(0.5)
	hundred   = decimal.NewFromInt(100)
)

// ConsensusMethod selects how Consensus aggregates multiple vendor lines.
type ConsensusMethod string

const (
	ConsensusMean     ConsensusMethod = "mean"
	ConsensusMedian   ConsensusMethod = "median"
	ConsensusWeighted ConsensusMethod = "weighted"
)

// AmericanToImplied converts American odds to an implied probability.
func AmericanToImplied(americanOdds int) decimal.Decimal {
	if americanOdds == 0 {
		return half
	}
	odds := decimal.NewFromInt(int64(americanOdds))
	if americanOdds < 0 {
		absOdds := odds.Abs()
		return absOdds.Div(absOdds.Add(hundred))
	}
	return hundred.Div(odds.Add(hundred))
}

// ImpliedToAmerican converts an implied probability back to American odds,
// rounded to the nearest integer. Undefined (BadInput) outside (0,1).
func ImpliedToAmerican(prob decimal.Decimal) (int, error) {
	if prob.LessThanOrEqual(zero) || prob.GreaterThanOrEqual(one) {
		return 0, model.NewError(model.CodeBadInput, "probability must be in (0,1), got %s", prob)
	}
	if prob.Equal(half) {
		return 100, nil
	}
	var american decimal.Decimal
	if prob.GreaterThan(half) {
		american = hundred.Neg().Mul(prob).Div(one.Sub(prob))
	} else {
		american = hundred.Mul(one.Sub(prob)).Div(prob)
	}
	return int(american.Round(0).IntPart()), nil
}

// CentsToProb converts an exchange price in integer cents [0,100] to a
// probability in [0,1], clamping out-of-range input.
func CentsToProb(cents decimal.Decimal) decimal.Decimal {
	if cents.LessThan(zero) {
		cents = zero
	}
	if cents.GreaterThan(hundred) {
		cents = hundred
	}
	return cents.Div(hundred)
}

// Consensus aggregates implied probabilities from multiple American-odds
// quotes using mean, median, or distance-weighted averaging. BadInput on an
// empty input list.
func Consensus(americanOdds []int, method ConsensusMethod) (decimal.Decimal, error) {
	if len(americanOdds) == 0 {
		return zero, model.NewError(model.CodeBadInput, "consensus requires at least one quote")
	}
	probs := make([]decimal.Decimal, len(americanOdds))
	for i, o := range americanOdds {
		probs[i] = AmericanToImplied(o)
	}
	switch method {
	case ConsensusMean:
		return meanOf(probs), nil
	case ConsensusWeighted:
		return weightedOf(probs), nil
	case ConsensusMedian:
		return medianOf(probs), nil
	default:
		return medianOf(probs), nil
	}
}

func meanOf(probs []decimal.Decimal) decimal.Decimal {
	sum := zero
	for _, p := range probs {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(probs))))
}

func medianOf(probs []decimal.Decimal) decimal.Decimal {
	sorted := append([]decimal.Decimal(nil), probs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	n := len(sorted)
	mid := n / 2
	if n%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
	}
	return sorted[mid]
}

// weightedOf weights each quote by distance from a pick'em line (1.0 to 1.5
// weight), so sharper (more lopsided) lines count for more.
func weightedOf(probs []decimal.Decimal) decimal.Decimal {
	totalWeight := zero
	weightedSum := zero
	for _, p := range probs {
		distance := p.Sub(half).Abs()
		weight := one.Add(distance)
		totalWeight = totalWeight.Add(weight)
		weightedSum = weightedSum.Add(p.Mul(weight))
	}
	return weightedSum.Div(totalWeight)
}

// RemoveVig normalizes two implied probabilities on a two-way market to
// sum to 1, clamping to (0.5, 0.5) when both sides carry zero probability
// (a degenerate input that would otherwise divide by zero).
func RemoveVig(homeImplied, awayImplied decimal.Decimal) (home, away decimal.Decimal) {
	total := homeImplied.Add(awayImplied)
	if total.Equal(zero) {
		return half, half
	}
	return homeImplied.Div(total), awayImplied.Div(total)
}

// RemoveVigAmerican is RemoveVig taking raw American odds on each side.
func RemoveVigAmerican(homeOdds, awayOdds int) (home, away decimal.Decimal) {
	return RemoveVig(AmericanToImplied(homeOdds), AmericanToImplied(awayOdds))
}

// EV computes the expected value of buying qty=1 of side at priceCents
// (integer cents 0-100) given trueP, the estimated true probability of the
// Yes outcome.
//
//	Yes: ev = (true_p - price_c/100) / (price_c/100)
//	No:  mirror true_p -> 1-true_p and price_c -> 100-price_c
func EV(priceCents decimal.Decimal, trueP decimal.Decimal, side model.Side) (decimal.Decimal, error) {
	if priceCents.LessThan(zero) || priceCents.GreaterThan(hundred) {
		return zero, model.NewError(model.CodeBadInput, "price must be in [0,100] cents, got %s", priceCents)
	}
	if trueP.LessThan(zero) || trueP.GreaterThan(one) {
		return zero, model.NewError(model.CodeBadInput, "true probability must be in [0,1], got %s", trueP)
	}
	effPrice := priceCents
	effP := trueP
	if side == model.SideNo {
		effPrice = hundred.Sub(priceCents)
		effP = one.Sub(trueP)
	}
	if effPrice.Equal(zero) {
		return zero, model.NewError(model.CodeBadInput, "effective price is zero")
	}
	priceFrac := effPrice.Div(hundred)
	return effP.Sub(priceFrac).Div(priceFrac), nil
}

// Kelly computes the Kelly-criterion bet-sizing fraction for buying side at
// priceCents given trueP, scaled by frac (fractional Kelly, e.g. 0.25 for
// quarter-Kelly). Returns 0 (never negative) when the edge is non-positive
// or when priceCents or trueP sits exactly on a range boundary; returns a
// CodeBadInput error when priceCents is outside [0,100] or trueP is outside
// [0,1].
func Kelly(priceCents decimal.Decimal, trueP decimal.Decimal, side model.Side, frac decimal.Decimal) (decimal.Decimal, error) {
	if priceCents.LessThan(zero) || priceCents.GreaterThan(hundred) {
		return zero, model.NewError(model.CodeBadInput, "price must be in [0,100] cents, got %s", priceCents)
	}
	if trueP.LessThan(zero) || trueP.GreaterThan(one) {
		return zero, model.NewError(model.CodeBadInput, "true probability must be in [0,1], got %s", trueP)
	}
	if priceCents.LessThanOrEqual(zero) || priceCents.GreaterThanOrEqual(hundred) {
		return zero, nil
	}
	if trueP.LessThanOrEqual(zero) || trueP.GreaterThanOrEqual(one) {
		return zero, nil
	}

	cost := priceCents
	payout := hundred.Sub(priceCents)
	p := trueP
	if side == model.SideNo {
		cost = hundred.Sub(priceCents)
		payout = priceCents
		p = one.Sub(trueP)
	}
	if payout.LessThanOrEqual(zero) || cost.LessThanOrEqual(zero) {
		return zero, nil
	}

	q := one.Sub(p)
	b := payout.Div(cost)
	kelly := p.Mul(b).Sub(q).Div(b)
	if kelly.LessThanOrEqual(zero) {
		return zero, nil
	}

	fraction := kelly.Mul(frac)
	if fraction.GreaterThan(one) {
		fraction = one
	}
	return fraction, nil
}

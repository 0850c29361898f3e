// Package sports parses exchange tickers and normalizes team codes. Grounded
// on the teacher's pkg/polymarket/sports slug/team matching (regex-driven
// slug parsing, x/text-based accent folding) but generalized from
// Polymarket's soccer-slug shape to the exchange's sports-series ticker
// shape: SERIES-YYMONDD<AWAY><HOME>-<SUFFIX>.
package sports

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// dateTeamsPattern matches the common YYmonDD<AWAY><HOME> blob wherever it
// occurs in a ticker: 2-digit year, 3-letter month, 2-digit day, then two
// 3-letter team codes, all case-insensitive.
var dateTeamsPattern = regexp.MustCompile(`(?i)(\d{2})([a-z]{3})(\d{2})([a-z]{3})([a-z]{3})`)

// ParsedTicker is the result of parsing an exchange series ticker.
type ParsedTicker struct {
	Series     model.MarketType
	Date       string // "YYYY-MM-DD"
	AwayTeam   string
	HomeTeam   string
	Team       string           // team-side tag, when the series carries one
	Spread     *decimal.Decimal // spread magnitude, SPREAD series only
	TotalValue *decimal.Decimal // total line, TOTAL series only
}

// ParseTicker parses a market ticker of the shape
// "MONEYLINE-<YYMONDD><AWAY><HOME>-<TEAM>", "SPREAD-<YYMONDD><AWAY><HOME>-<TEAM><N>",
// or "TOTAL-<YYMONDD><AWAY><HOME>-<N>". Fails with BadInput on a missing date
// pattern, fewer than six team-code characters, or an unrecognized month.
func ParseTicker(ticker string) (*ParsedTicker, error) {
	parts := strings.SplitN(ticker, "-", 2)
	if len(parts) != 2 {
		return nil, model.NewError(model.CodeBadInput, "ticker %q missing series separator", ticker)
	}
	series, err := parseSeries(parts[0])
	if err != nil {
		return nil, err
	}

	match := dateTeamsPattern.FindStringSubmatch(parts[1])
	if match == nil {
		return nil, model.NewError(model.CodeBadInput, "ticker %q missing date/team-code pattern", ticker)
	}
	date, err := parseTickerDate(match[1], match[2], match[3])
	if err != nil {
		return nil, err
	}
	away := NormalizeTeamCode(strings.ToUpper(match[4]))
	home := NormalizeTeamCode(strings.ToUpper(match[5]))

	suffixStart := strings.Index(parts[1], match[0]) + len(match[0])
	suffix := strings.TrimPrefix(parts[1][suffixStart:], "-")

	parsed := &ParsedTicker{Series: series, Date: date, AwayTeam: away, HomeTeam: home}

	switch series {
	case model.MarketMoneyline:
		parsed.Team = NormalizeTeamCode(strings.ToUpper(suffix))
	case model.MarketSpread:
		team, magnitude := splitTrailingNumber(suffix)
		parsed.Team = NormalizeTeamCode(strings.ToUpper(team))
		if magnitude != "" {
			val, err := parseLineValue(magnitude)
			if err != nil {
				return nil, model.NewError(model.CodeBadInput, "ticker %q has invalid spread magnitude %q", ticker, magnitude)
			}
			parsed.Spread = &val
		}
	case model.MarketTotal:
		val, err := parseLineValue(suffix)
		if err != nil {
			return nil, model.NewError(model.CodeBadInput, "ticker %q has invalid total value %q", ticker, suffix)
		}
		parsed.TotalValue = &val
	}

	return parsed, nil
}

func parseSeries(prefix string) (model.MarketType, error) {
	switch strings.ToUpper(prefix) {
	case "MONEYLINE":
		return model.MarketMoneyline, nil
	case "SPREAD":
		return model.MarketSpread, nil
	case "TOTAL":
		return model.MarketTotal, nil
	default:
		return "", model.NewError(model.CodeBadInput, "unrecognized ticker series %q", prefix)
	}
}

func parseTickerDate(yy, mon, dd string) (string, error) {
	month, ok := months[strings.ToLower(mon)]
	if !ok {
		return "", model.NewError(model.CodeBadInput, "unrecognized month %q", mon)
	}
	year, err := strconv.Atoi(yy)
	if err != nil {
		return "", model.NewError(model.CodeBadInput, "invalid year %q", yy)
	}
	day, err := strconv.Atoi(dd)
	if err != nil {
		return "", model.NewError(model.CodeBadInput, "invalid day %q", dd)
	}
	t := time.Date(2000+year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02"), nil
}

// splitTrailingNumber splits "SAC6P5" into ("SAC", "6P5"): the leading
// alphabetic team code and the trailing numeric/point suffix.
func splitTrailingNumber(s string) (team, number string) {
	idx := len(s)
	for idx > 0 && isLineChar(rune(s[idx-1])) {
		idx--
	}
	return s[:idx], s[idx:]
}

func isLineChar(r rune) bool {
	return (r >= '0' && r <= '9') || r == 'P' || r == 'p' || r == '.'
}

// parseLineValue converts a line suffix like "6P5" or "6.5" or "6" into a
// decimal, treating a trailing "P5"/"p5" as a half-point the way the
// exchange's own slug convention encodes fractional spreads and totals.
func parseLineValue(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.ReplaceAll(s, "P", "."), "p", ".")
	return decimal.NewFromString(normalized)
}

// teamCodeAliases re-maps exchange team codes that diverge from the
// sports-data vendor's canonical code before external lookup.
var teamCodeAliases = map[string]string{
	"GSC": "GSW",
	"NOP": "NO",
	"NYK": "NY",
	"SAS": "SA",
}

// NormalizeTeamCode folds accents/case and applies the static alias table.
func NormalizeTeamCode(code string) string {
	code = foldAccents(strings.ToUpper(strings.TrimSpace(code)))
	if mapped, ok := teamCodeAliases[code]; ok {
		return mapped
	}
	return code
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

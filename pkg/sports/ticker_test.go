package sports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func TestParseTickerMoneyline(t *testing.T) {
	parsed, err := ParseTicker("MONEYLINE-26JAN06DALSAC-SAC")
	require.NoError(t, err)
	assert.Equal(t, model.MarketMoneyline, parsed.Series)
	assert.Equal(t, "2026-01-06", parsed.Date)
	assert.Equal(t, "DAL", parsed.AwayTeam)
	assert.Equal(t, "SAC", parsed.HomeTeam)
	assert.Equal(t, "SAC", parsed.Team)
}

func TestParseTickerSpread(t *testing.T) {
	parsed, err := ParseTicker("SPREAD-26JAN06DALSAC-SAC6P5")
	require.NoError(t, err)
	assert.Equal(t, model.MarketSpread, parsed.Series)
	assert.Equal(t, "SAC", parsed.Team)
	require.NotNil(t, parsed.Spread)
	assert.True(t, parsed.Spread.Equal(decimal.RequireFromString("6.5")))
}

func TestParseTickerTotal(t *testing.T) {
	parsed, err := ParseTicker("TOTAL-26JAN06DALSAC-228P5")
	require.NoError(t, err)
	assert.Equal(t, model.MarketTotal, parsed.Series)
	require.NotNil(t, parsed.TotalValue)
	assert.True(t, parsed.TotalValue.Equal(decimal.RequireFromString("228.5")))
}

func TestParseTickerMissingDatePattern(t *testing.T) {
	_, err := ParseTicker("MONEYLINE-nodatehere-SAC")
	require.Error(t, err)
	assert.Equal(t, model.CodeBadInput, model.CodeOf(err))
}

func TestParseTickerInvalidMonth(t *testing.T) {
	_, err := ParseTicker("MONEYLINE-26zzz06dalsac-sac")
	require.Error(t, err)
	assert.Equal(t, model.CodeBadInput, model.CodeOf(err))
}

func TestParseTickerUnrecognizedSeries(t *testing.T) {
	_, err := ParseTicker("DRAW-26jan06dalsac-sac")
	require.Error(t, err)
	assert.Equal(t, model.CodeBadInput, model.CodeOf(err))
}

func TestNormalizeTeamCodeAlias(t *testing.T) {
	assert.Equal(t, "GSW", NormalizeTeamCode("GSC"))
	assert.Equal(t, "SAC", NormalizeTeamCode("sac"))
}

func TestTeamDirectoryRoundTrip(t *testing.T) {
	dir := NewTeamDirectory(map[string]string{
		"SAC": "Sacramento Kings",
		"DAL": "Dallas Mavericks",
	})
	code, ok := dir.CodeForName("Sacramento Kings")
	require.True(t, ok)
	assert.Equal(t, "SAC", code)

	name, ok := dir.NameForCode("dal")
	require.True(t, ok)
	assert.Equal(t, "Dallas Mavericks", name)
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, table.CheapestModel())
}

func TestCostKnownModel(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	// gpt-4o: $0.0025/1k in, $0.01/1k out.
	cost := table.Cost("gpt-4o", 1000, 500)
	assert.InDelta(t, 0.0025+0.005, cost, 1e-9)
}

func TestCostUnknownModelUsesCheapestTier(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	cost := table.Cost("some-future-model", 1000, 1000)
	require.Greater(t, cost, 0.0, "unknown models are estimated, never free")
	assert.InDelta(t, table.Cost(table.CheapestModel(), 1000, 1000), cost, 1e-9)
}

func TestCheapestModel(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	// gpt-4o-mini has the lowest blended rate in the shipped table.
	assert.Equal(t, "gpt-4o-mini", table.CheapestModel())
}

func TestInputRate(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.003, table.InputRate("claude-3-5-sonnet-20241022"), 1e-9)
	assert.InDelta(t, table.InputRate(table.CheapestModel()), table.InputRate("unknown"), 1e-9)
}

func TestZeroTokensCostNothing(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)
	assert.Zero(t, table.Cost("gpt-4o", 0, 0))
}

// Package pricing maps models to per-token dollar rates.
package pricing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// Rate holds the price per 1k tokens for one model.
type Rate struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// Table resolves model names to rates.
type Table struct {
	rates    map[string]Rate
	cheapest string
}

type tableFile struct {
	Models map[string]Rate `yaml:"models"`
}

// Load parses the embedded price table.
func Load() (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(modelsYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("price table is empty")
	}

	t := &Table{rates: f.Models}
	t.cheapest = t.findCheapest()
	return t, nil
}

// Cost returns the dollar cost for a call. Unknown models are priced at the
// cheapest known tier rather than erroring.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	rate, ok := t.rates[model]
	if !ok {
		rate = t.rates[t.cheapest]
	}
	return float64(inputTokens)/1000*rate.InputPer1K +
		float64(outputTokens)/1000*rate.OutputPer1K
}

// InputRate returns the $/1k input-token rate for a model, cheapest tier for
// unknown models.
func (t *Table) InputRate(model string) float64 {
	rate, ok := t.rates[model]
	if !ok {
		rate = t.rates[t.cheapest]
	}
	return rate.InputPer1K
}

// CheapestModel returns the model with the lowest blended rate.
func (t *Table) CheapestModel() string {
	return t.cheapest
}

// findCheapest picks the model with the lowest blended rate, assuming the
// ~3:1 input:output ratio typical for chat.
func (t *Table) findCheapest() string {
	var best string
	bestCost := -1.0
	for model, rate := range t.rates {
		blended := (rate.InputPer1K + 2*rate.OutputPer1K) / 3
		if bestCost < 0 || blended < bestCost || (blended == bestCost && model < best) {
			best = model
			bestCost = blended
		}
	}
	return best
}

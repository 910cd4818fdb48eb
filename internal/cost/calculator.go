// Package cost attributes LLM spend to mining batches.
package cost

import "github.com/mintahmichael98-prog/leadgenius-ai/internal/config"

// Provider identifiers used in Usage.
const (
	ProviderAnthropic  = "anthropic"
	ProviderPerplexity = "perplexity"
	ProviderJina       = "jina"
)

// Usage is the token and request count of one or more provider calls.
type Usage struct {
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Requests     int    `json:"requests"`
	SearchTokens int    `json:"search_tokens,omitempty"`
}

// Add accumulates other into u. Provider and model keep the first non-empty value.
func (u *Usage) Add(other Usage) {
	if u.Provider == "" {
		u.Provider = other.Provider
	}
	if u.Model == "" {
		u.Model = other.Model
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Requests += other.Requests
	u.SearchTokens += other.SearchTokens
}

// Rates holds per-provider pricing.
type Rates struct {
	Anthropic  map[string]ModelRate
	Perplexity PerplexityRate
	Jina       JinaRate
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64
	Output float64
}

// PerplexityRate holds Perplexity pricing: a request fee plus token cost.
type PerplexityRate struct {
	PerQuery float64
	PerMTok  float64
}

// JinaRate holds Jina search pricing.
type JinaRate struct {
	PerMTok float64
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of Claude token usage. Unknown models cost zero.
func (c *Calculator) Claude(model string, input, output int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Perplexity computes the cost of Perplexity requests.
func (c *Calculator) Perplexity(requests, tokens int) float64 {
	return float64(requests)*c.rates.Perplexity.PerQuery + (float64(tokens)/1e6)*c.rates.Perplexity.PerMTok
}

// Jina computes the cost for Jina search token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return (float64(tokens) / 1e6) * c.rates.Jina.PerMTok
}

// Cost prices a Usage record by its provider.
func (c *Calculator) Cost(u Usage) float64 {
	if c == nil {
		return 0
	}
	var total float64
	switch u.Provider {
	case ProviderAnthropic:
		total = c.Claude(u.Model, u.InputTokens, u.OutputTokens)
	case ProviderPerplexity:
		total = c.Perplexity(u.Requests, u.InputTokens+u.OutputTokens)
	}
	return total + c.Jina(u.SearchTokens)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005, PerMTok: 3.0},
		Jina:       JinaRate{PerMTok: 0.02},
	}
}

// RatesFromConfig overlays configured pricing on DefaultRates.
func RatesFromConfig(p config.PricingConfig) Rates {
	rates := DefaultRates()
	for model, mp := range p.Anthropic {
		rates.Anthropic[model] = ModelRate{Input: mp.Input, Output: mp.Output}
	}
	if p.Perplexity.PerQuery > 0 {
		rates.Perplexity.PerQuery = p.Perplexity.PerQuery
	}
	if p.Perplexity.PerMTok > 0 {
		rates.Perplexity.PerMTok = p.Perplexity.PerMTok
	}
	return rates
}

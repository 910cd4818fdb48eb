// Package generate produces candidate leads from a web-search-grounded LLM.
package generate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// Sentinel errors surfaced to the mining loop.
var (
	// ErrQuotaExhausted means the provider kept rate limiting after every
	// cooldown. The run cannot make progress until quota resets.
	ErrQuotaExhausted = eris.New("generate: quota exhausted")

	// ErrGenerationFailed means the provider failed for a reason retries
	// could not fix.
	ErrGenerationFailed = eris.New("generate: generation failed")

	// ErrMalformedResponse means the model's text held no parseable lead list.
	ErrMalformedResponse = eris.New("generate: malformed response")
)

// Request asks for one batch of candidates.
type Request struct {
	Query      string
	BatchSize  int
	BatchIndex int
	// Exclude lists company names already accepted in this run, oldest first.
	Exclude []string
}

// Batch is the parsed result of one generation call.
type Batch struct {
	Candidates []model.Lead
	Usage      cost.Usage
}

// Generator returns one batch of candidate leads per call.
type Generator interface {
	GenerateBatch(ctx context.Context, req Request) (*Batch, error)
}

// Prompt is a single-turn completion request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
}

// Completer runs a raw prompt against the configured model. Research and
// outreach reuse it for non-lead prompts.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, cost.Usage, error)
}

// Backend is a provider that can both complete raw prompts and generate
// lead batches.
type Backend interface {
	Generator
	Completer
}

// BackendOption tunes a generation backend.
type BackendOption func(*settings)

type settings struct {
	excludeCap  int
	temperature float64
	maxTokens   int64
	searchLimit int
}

func defaultSettings() settings {
	return settings{excludeCap: DefaultExcludeCap, temperature: 0.7, maxTokens: 4096, searchLimit: 5}
}

// WithExcludeCap sets how many already-seen names go into each prompt.
func WithExcludeCap(n int) BackendOption {
	return func(s *settings) {
		if n > 0 {
			s.excludeCap = n
		}
	}
}

// WithTemperature sets the sampling temperature for lead generation.
func WithTemperature(t float64) BackendOption {
	return func(s *settings) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int64) BackendOption {
	return func(s *settings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithSearchLimit sets how many search results ground each batch.
func WithSearchLimit(n int) BackendOption {
	return func(s *settings) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// generateWith runs a lead prompt through c and parses the reply.
func generateWith(ctx context.Context, c Completer, prompt string, temperature float64) (*Batch, error) {
	text, usage, err := c.Complete(ctx, Prompt{
		System:      SystemPrompt,
		User:        prompt,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}
	leads, err := ParseCandidates(text)
	if err != nil {
		return &Batch{Usage: usage}, err
	}
	return &Batch{Candidates: leads, Usage: usage}, nil
}

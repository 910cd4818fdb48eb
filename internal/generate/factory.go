package generate

import (
	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/anthropic"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/jina"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/perplexity"
)

// FromConfig builds the configured backend wrapped in the retry policy.
func FromConfig(cfg *config.Config) (*Retrying, error) {
	g := cfg.Generation
	opts := []BackendOption{
		WithExcludeCap(g.ExcludeCap),
		WithTemperature(g.Temperature),
	}

	var backend Backend
	switch g.Backend {
	case "perplexity":
		if cfg.Perplexity.Key == "" {
			return nil, eris.New("generate: perplexity.key is required")
		}
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		backend = NewPerplexityBackend(client, cfg.Perplexity.Model, opts...)
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("generate: anthropic.key is required")
		}
		var search jina.Client
		if cfg.Jina.Key != "" {
			search = jina.NewClient(cfg.Jina.Key, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		opts = append(opts, WithMaxTokens(cfg.Anthropic.MaxTokens), WithSearchLimit(cfg.Jina.MaxResults))
		backend = NewAnthropicBackend(anthropic.NewClient(cfg.Anthropic.Key), search, cfg.Anthropic.Model, opts...)
	default:
		return nil, eris.Errorf("generate: unknown backend %q", g.Backend)
	}

	return NewRetrying(backend, resilience.FromConfig(g.Retry)), nil
}

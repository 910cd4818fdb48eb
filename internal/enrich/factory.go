package enrich

import (
	"time"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/apollo"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/google"
)

// FromConfig builds the enrichment cascade for the configured keys. With no
// keys it returns Passthrough.
func FromConfig(cfg *config.Config) Enricher {
	var providers []Provider
	if cfg.Apollo.Key != "" {
		client := apollo.NewClient(cfg.Apollo.Key, apollo.WithBaseURL(cfg.Apollo.BaseURL))
		providers = append(providers, NewApolloProvider(client, true))
	}
	if cfg.Google.Key != "" {
		client := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
		providers = append(providers, NewPlacesProvider(client))
	}
	if len(providers) == 0 {
		return Passthrough{}
	}
	return NewWaterfall(providers,
		WithRateLimit(cfg.Enrich.RatePerSec),
		WithTimeout(time.Duration(cfg.Enrich.TimeoutSecs)*time.Second),
	)
}

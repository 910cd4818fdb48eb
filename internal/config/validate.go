package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode depends on.
// Modes: "mine" (headless mining), "serve" (HTTP API), "export" (CRM push).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "mine", "serve":
		errs = append(errs, c.validateGeneration()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "export":
		if c.Salesforce.ClientID == "" && c.Notion.Token == "" {
			errs = append(errs, "salesforce.client_id or notion.token is required")
		}
		if c.Notion.Token != "" && c.Notion.LeadDB == "" {
			errs = append(errs, "notion.lead_db is required when notion.token is set")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateGeneration() []string {
	var errs []string
	g := c.Generation

	switch g.Backend {
	case "perplexity":
		if c.Perplexity.Key == "" {
			errs = append(errs, "perplexity.key is required")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("generation.backend %q must be perplexity or anthropic", g.Backend))
	}

	if g.BatchSize < 1 || g.BatchSize > 25 {
		errs = append(errs, "generation.batch_size must be between 1 and 25")
	}
	if g.MaxBatches < 1 {
		errs = append(errs, "generation.max_batches must be > 0")
	}
	if g.MinBalance < 1 {
		errs = append(errs, "generation.min_balance must be >= 1")
	}
	if g.EmptyBatchLimit < 1 {
		errs = append(errs, "generation.empty_batch_limit must be >= 1")
	}
	if g.PacingMs < 0 || g.EmptyBackoffMs < 0 {
		errs = append(errs, "generation pacing values must be >= 0")
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		errs = append(errs, "generation.temperature must be between 0 and 2")
	}
	return errs
}

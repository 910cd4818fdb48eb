package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/enrich"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/export"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/outreach"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/research"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/scorer"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/arkesel"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/jina"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/notion"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/salesforce"
)

// miningEnv holds the store and the services a mining run needs.
type miningEnv struct {
	Store   store.Store
	Backend generate.Backend
	Miner   *mining.Miner
}

// Close releases the store.
func (e *miningEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initMining opens the store and builds the generation backend, the
// enrichment cascade, the scorer and the miner. Callers should defer
// env.Close().
func initMining(ctx context.Context) (*miningEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	backend, err := generate.FromConfig(cfg)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init generation backend")
	}

	rules := scorer.DefaultRules()
	if cfg.Scoring.RulesFile != "" {
		rules, err = scorer.LoadRules(cfg.Scoring.RulesFile)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Info("scoring rules loaded", zap.String("file", cfg.Scoring.RulesFile))
	}

	miner := mining.New(mining.Deps{
		Generator: backend,
		Enricher:  enrich.FromConfig(cfg),
		Scorer:    scorer.New(rules),
		Ledger:    st,
		Costs:     cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)),
	}, mining.ConfigFrom(cfg.Generation))

	zap.L().Info("mining ready",
		zap.String("backend", cfg.Generation.Backend),
		zap.String("store", cfg.Store.Driver),
	)
	return &miningEnv{Store: st, Backend: backend, Miner: miner}, nil
}

// initPushers returns a CRM pusher for every configured target.
func initPushers() []export.Pusher {
	var pushers []export.Pusher
	if cfg.Salesforce.ClientID != "" {
		sf, err := salesforce.Connect(salesforce.JWTConfig{
			LoginURL: cfg.Salesforce.LoginURL,
			Username: cfg.Salesforce.Username,
			ClientID: cfg.Salesforce.ClientID,
			KeyPath:  cfg.Salesforce.KeyPath,
		}, salesforce.WithRateLimit(cfg.Salesforce.RatePerSec))
		if err != nil {
			zap.L().Warn("salesforce not available, skipping", zap.Error(err))
		} else {
			pushers = append(pushers, export.NewSalesforcePusher(sf))
		}
	}
	if cfg.Notion.Token != "" && cfg.Notion.LeadDB != "" {
		pushers = append(pushers, export.NewNotionPusher(notion.NewClient(cfg.Notion.Token), cfg.Notion.LeadDB))
	}
	return pushers
}

// pusherNamed returns the single configured pusher called name.
func pusherNamed(name string) (export.Pusher, error) {
	for _, p := range initPushers() {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, eris.Errorf("%s is not configured", name)
}

// initResearcher grounds research prompts with the Jina reader when a
// Jina key is configured.
func initResearcher(llm generate.Completer) *research.Researcher {
	var opts []research.Option
	if cfg.Jina.Key != "" {
		opts = append(opts, research.WithReader(jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))))
	}
	return research.New(llm, opts...)
}

// initSMS returns nil when no Arkesel key is configured.
func initSMS() *outreach.SMSCampaign {
	if cfg.Arkesel.Key == "" {
		return nil
	}
	client := arkesel.NewClient(cfg.Arkesel.Key, arkesel.WithBaseURL(cfg.Arkesel.BaseURL))
	var interval time.Duration
	if cfg.Arkesel.RatePerSec > 0 {
		interval = time.Duration(float64(time.Second) / cfg.Arkesel.RatePerSec)
	}
	return outreach.NewSMSCampaign(client, interval)
}

// Package enrich decorates generated leads with data from secondary sources.
// Enrichment is best effort: a lead always comes back, possibly unchanged.
package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
)

// Enricher returns an enriched copy of a lead. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, lead model.Lead) model.Lead
}

// Provider is one enrichment source. Errors are absorbed by the Waterfall.
type Provider interface {
	Name() string
	Enrich(ctx context.Context, lead model.Lead) (model.Lead, error)
}

// Passthrough fills defaults and otherwise returns the lead unchanged.
type Passthrough struct{}

// Enrich implements Enricher.
func (Passthrough) Enrich(_ context.Context, lead model.Lead) model.Lead {
	lead.ApplyDefaults()
	return lead
}

// Waterfall runs providers in order. Each provider sits behind its own rate
// limiter and circuit breaker, and a provider's output feeds the next one.
type Waterfall struct {
	providers []Provider
	limiters  map[string]*rate.Limiter
	breakers  *resilience.ServiceBreakers
	timeout   time.Duration
}

// WaterfallOption configures a Waterfall.
type WaterfallOption func(*Waterfall)

// WithRateLimit paces every provider to rps calls per second.
func WithRateLimit(rps float64) WaterfallOption {
	return func(w *Waterfall) {
		if rps <= 0 {
			w.limiters = nil
			return
		}
		w.limiters = make(map[string]*rate.Limiter, len(w.providers))
		for _, p := range w.providers {
			w.limiters[p.Name()] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) WaterfallOption {
	return func(w *Waterfall) {
		w.timeout = d
	}
}

// WithBreakers overrides the circuit breaker set.
func WithBreakers(sb *resilience.ServiceBreakers) WaterfallOption {
	return func(w *Waterfall) {
		if sb != nil {
			w.breakers = sb
		}
	}
}

// NewWaterfall creates a Waterfall over providers, run in the given order.
func NewWaterfall(providers []Provider, opts ...WaterfallOption) *Waterfall {
	w := &Waterfall{
		providers: providers,
		breakers:  resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		timeout:   10 * time.Second,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Breakers exposes per-provider circuit state for health reporting.
func (w *Waterfall) Breakers() *resilience.ServiceBreakers {
	return w.breakers
}

// Enrich implements Enricher. Cancellation stops the cascade and returns
// whatever has been merged so far.
func (w *Waterfall) Enrich(ctx context.Context, lead model.Lead) model.Lead {
	out := lead
	for _, p := range w.providers {
		if ctx.Err() != nil {
			break
		}
		next, err := w.run(ctx, p, out)
		if err != nil {
			zap.L().Debug("enrich: provider failed",
				zap.String("provider", p.Name()),
				zap.String("company", lead.Company),
				zap.Error(err),
			)
			continue
		}
		out = next
	}
	out.ApplyDefaults()
	return out
}

func (w *Waterfall) run(ctx context.Context, p Provider, lead model.Lead) (out model.Lead, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("enrich: %s panicked: %v", p.Name(), r)
		}
	}()

	if lim := w.limiters[p.Name()]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return lead, err
		}
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return resilience.ExecuteVal(ctx, w.breakers.Get(p.Name()), func(ctx context.Context) (model.Lead, error) {
		return p.Enrich(ctx, lead)
	})
}

// Domain extracts the bare host from a website string such as
// "https://www.acme.com/about" or "acme.com".
func Domain(website string) string {
	s := strings.TrimSpace(website)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// empty reports whether a generated field carries no real value.
func empty(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "n/a", "na", "none":
		return true
	}
	return false
}

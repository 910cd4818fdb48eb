package generate

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
)

// Retrying wraps a Backend with retry and backoff. Transient errors back
// off exponentially and rate-limit errors wait out a cooldown. Malformed
// replies are retried within the same attempt budget.
//
// Once attempts run out, rate limiting becomes ErrQuotaExhausted and any
// other failure becomes ErrGenerationFailed. A reply that is still malformed
// keeps ErrMalformedResponse so the caller can treat it as an empty batch.
type Retrying struct {
	next Backend
	cfg  resilience.RetryConfig
}

// NewRetrying wraps next with the given retry policy.
func NewRetrying(next Backend, cfg resilience.RetryConfig) *Retrying {
	return &Retrying{next: next, cfg: cfg}
}

func (r *Retrying) policy(op string) resilience.RetryConfig {
	cfg := r.cfg
	cfg.ShouldRetry = func(err error) bool {
		return errors.Is(err, ErrMalformedResponse) || resilience.IsTransient(err)
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("generate", op)
	}
	return cfg
}

// GenerateBatch implements Generator. On error the returned Batch is
// non-nil and carries the usage of every attempt.
func (r *Retrying) GenerateBatch(ctx context.Context, req Request) (*Batch, error) {
	var usage cost.Usage
	batch, err := resilience.DoVal(ctx, r.policy("generate_batch"), func(ctx context.Context) (*Batch, error) {
		b, err := r.next.GenerateBatch(ctx, req)
		if b != nil {
			usage.Add(b.Usage)
		}
		return b, err
	})
	if err != nil {
		return &Batch{Usage: usage}, classify(ctx, err)
	}
	batch.Usage = usage
	return batch, nil
}

// Complete implements Completer.
func (r *Retrying) Complete(ctx context.Context, p Prompt) (string, cost.Usage, error) {
	var usage cost.Usage
	text, err := resilience.DoVal(ctx, r.policy("complete"), func(ctx context.Context) (string, error) {
		t, u, err := r.next.Complete(ctx, p)
		usage.Add(u)
		return t, err
	})
	if err != nil {
		return "", usage, classify(ctx, err)
	}
	return text, usage, nil
}

func classify(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return eris.Wrap(ctx.Err(), "generate: cancelled")
	case errors.Is(err, ErrMalformedResponse):
		return err
	case resilience.IsRateLimited(err):
		return eris.Wrapf(ErrQuotaExhausted, "provider kept rate limiting: %v", err)
	default:
		return eris.Wrapf(ErrGenerationFailed, "%v", err)
	}
}

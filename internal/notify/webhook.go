// Package notify delivers lead and run notifications to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/resilience"
)

// Type identifies the kind of notification.
type Type string

const (
	TypeLeadStatus     Type = "lead.status_changed"
	TypeRunFailed      Type = "run.failed"
	TypeQuotaExhausted Type = "run.quota_exhausted"
	TypeOutOfCredits   Type = "run.out_of_credits"
	TypeCostOverrun    Type = "run.cost_overrun"
)

// Notification is one webhook payload.
type Notification struct {
	Type      Type           `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Webhook posts notifications as JSON. A Webhook with no URL drops
// everything, so callers need not check whether one is configured.
type Webhook struct {
	cfg    config.WebhookConfig
	client *http.Client
	retry  resilience.RetryConfig
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewWebhook creates a Webhook from config.
func NewWebhook(cfg config.WebhookConfig) *Webhook {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("webhook", "post")
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		retry:  retry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.cfg.URL != ""
}

// LeadStatusChanged reports a pipeline move. Delivery failures are logged
// and reported as false.
func (w *Webhook) LeadStatusChanged(ctx context.Context, l model.Lead, from, to model.LeadStatus) bool {
	return w.Send(ctx, statusNotification(l, from, to))
}

// LeadStatusChangedAsync is LeadStatusChanged in the background. Wait
// blocks until it is delivered or given up.
func (w *Webhook) LeadStatusChangedAsync(ctx context.Context, l model.Lead, from, to model.LeadStatus) {
	if !w.Enabled() {
		return
	}
	w.goSend(ctx, statusNotification(l, from, to))
}

func statusNotification(l model.Lead, from, to model.LeadStatus) Notification {
	return Notification{
		Type:     TypeLeadStatus,
		Severity: "info",
		Message:  fmt.Sprintf("%s moved from %s to %s", l.Company, from, to),
		Details: map[string]any{
			"lead_id": l.ID,
			"company": l.Company,
			"from":    string(from),
			"to":      string(to),
			"score":   l.Score,
		},
	}
}

// Send delivers n, retrying transient failures, and reports whether it was
// accepted.
func (w *Webhook) Send(ctx context.Context, n Notification) bool {
	if !w.Enabled() {
		return false
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = w.now()
	}
	if err := resilience.Do(ctx, w.retry, func(ctx context.Context) error {
		return w.post(ctx, n)
	}); err != nil {
		zap.L().Error("notify: failed to send notification",
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return false
	}
	zap.L().Debug("notify: notification sent",
		zap.String("type", string(n.Type)),
		zap.String("severity", n.Severity),
	)
	return true
}

func (w *Webhook) post(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "notify: marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(err, "notify: webhook request")
		}
		return resilience.NewTransientError(eris.Wrap(err, "notify: webhook request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resilience.HTTPError("notify: webhook", resp.StatusCode, string(body))
	}
	return nil
}

// Evaluate turns a finished run into the notifications it warrants.
func (w *Webhook) Evaluate(runID string, out mining.Outcome) []Notification {
	var ns []Notification
	details := map[string]any{
		"run_id":      runID,
		"batches":     out.Batches,
		"total_leads": out.TotalLeads,
		"cost_usd":    out.CostUSD,
	}
	now := w.now()

	switch {
	case out.QuotaExhausted():
		ns = append(ns, Notification{
			Type:      TypeQuotaExhausted,
			Severity:  "high",
			Message:   fmt.Sprintf("Run %s stopped: generation quota exhausted after %d leads", runID, out.TotalLeads),
			Details:   details,
			Timestamp: now,
		})
	case out.Reason == model.RunStatusFailed:
		ns = append(ns, Notification{
			Type:      TypeRunFailed,
			Severity:  "high",
			Message:   fmt.Sprintf("Run %s failed: %s", runID, out.Message),
			Details:   details,
			Timestamp: now,
		})
	case out.Reason == model.RunStatusOutOfCredits:
		ns = append(ns, Notification{
			Type:      TypeOutOfCredits,
			Severity:  "low",
			Message:   fmt.Sprintf("Run %s stopped: out of credits after %d leads", runID, out.TotalLeads),
			Details:   details,
			Timestamp: now,
		})
	}

	if w.cfg.CostThresholdUSD > 0 && out.CostUSD > w.cfg.CostThresholdUSD {
		ns = append(ns, Notification{
			Type:     TypeCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf("Run %s cost $%.2f exceeds threshold $%.2f",
				runID, out.CostUSD, w.cfg.CostThresholdUSD),
			Details:   details,
			Timestamp: now,
		})
	}
	return ns
}

// LeadsAppended implements mining.Sink.
func (w *Webhook) LeadsAppended(string, []model.Lead) {}

// Progress implements mining.Sink.
func (w *Webhook) Progress(string, int, int) {}

// Terminal implements mining.Sink. Alerts are delivered in the background;
// Wait blocks until they finish.
func (w *Webhook) Terminal(runID string, out mining.Outcome) {
	if !w.Enabled() {
		return
	}
	if ns := w.Evaluate(runID, out); len(ns) > 0 {
		w.goSend(context.Background(), ns...)
	}
}

// goSend delivers ns in order on a tracked goroutine.
func (w *Webhook) goSend(ctx context.Context, ns ...Notification) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for _, n := range ns {
			w.Send(ctx, n)
		}
	}()
}

// Wait blocks until background deliveries finish.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

type receiver struct {
	mu  sync.Mutex
	got []Notification
}

func (r *receiver) server(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var n Notification
		require.NoError(t, json.NewDecoder(req.Body).Decode(&n))
		r.mu.Lock()
		r.got = append(r.got, n)
		r.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (r *receiver) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func TestLeadStatusChanged(t *testing.T) {
	var r receiver
	ts := r.server(t, http.StatusOK)
	w := NewWebhook(config.WebhookConfig{URL: ts.URL})

	ok := w.LeadStatusChanged(context.Background(),
		model.Lead{ID: "l1", Company: "Kofi Dental", Score: 80},
		model.LeadStatusNew, model.LeadStatusContacted)
	assert.True(t, ok)

	got := r.all()
	require.Len(t, got, 1)
	assert.Equal(t, TypeLeadStatus, got[0].Type)
	assert.Equal(t, "Kofi Dental moved from new to contacted", got[0].Message)
	assert.Equal(t, "contacted", got[0].Details["to"])
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSend_Disabled(t *testing.T) {
	w := NewWebhook(config.WebhookConfig{})
	assert.False(t, w.Enabled())
	assert.False(t, w.Send(context.Background(), Notification{Type: TypeRunFailed}))

	var nilHook *Webhook
	assert.False(t, nilHook.Enabled())
}

// newTestWebhook returns a Webhook whose retries do not sleep.
func newTestWebhook(url string) *Webhook {
	w := NewWebhook(config.WebhookConfig{URL: url})
	w.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return w
}

func TestSend_ErrorStatus(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		calls int
	}{
		{"server error retried", http.StatusInternalServerError, 3},
		{"rate limited retried", http.StatusTooManyRequests, 3},
		{"client error not retried", http.StatusBadRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r receiver
			ts := r.server(t, tt.code)
			w := newTestWebhook(ts.URL)
			assert.False(t, w.Send(context.Background(), Notification{Type: TypeRunFailed}))
			assert.Len(t, r.all(), tt.calls)
		})
	}
}

func TestLeadStatusChanged_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	w := newTestWebhook(ts.URL)
	ok := w.LeadStatusChanged(context.Background(),
		model.Lead{ID: "l1", Company: "Kofi Dental"},
		model.LeadStatusNew, model.LeadStatusQualified)
	assert.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLeadStatusChangedAsync_WaitDrains(t *testing.T) {
	var r receiver
	ts := r.server(t, http.StatusOK)
	w := newTestWebhook(ts.URL)

	w.LeadStatusChangedAsync(context.Background(),
		model.Lead{ID: "l1", Company: "Kofi Dental"},
		model.LeadStatusContacted, model.LeadStatusWon)
	w.Wait()

	got := r.all()
	require.Len(t, got, 1)
	assert.Equal(t, "won", got[0].Details["to"])

	var disabled *Webhook
	disabled.LeadStatusChangedAsync(context.Background(), model.Lead{}, model.LeadStatusNew, model.LeadStatusLost)
}

func TestEvaluate(t *testing.T) {
	w := NewWebhook(config.WebhookConfig{URL: "http://example.com", CostThresholdUSD: 1})

	tests := []struct {
		name string
		out  mining.Outcome
		want []Type
	}{
		{"completed", mining.Outcome{Reason: model.RunStatusCompleted}, nil},
		{"cancelled", mining.Outcome{Reason: model.RunStatusCancelled}, nil},
		{"failed", mining.Outcome{Reason: model.RunStatusFailed, Message: "boom"}, []Type{TypeRunFailed}},
		{"quota", mining.Outcome{Reason: model.RunStatusFailed, Err: generate.ErrQuotaExhausted}, []Type{TypeQuotaExhausted}},
		{"credits", mining.Outcome{Reason: model.RunStatusOutOfCredits}, []Type{TypeOutOfCredits}},
		{"cost", mining.Outcome{Reason: model.RunStatusCompleted, CostUSD: 2.5}, []Type{TypeCostOverrun}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var types []Type
			for _, n := range w.Evaluate("run-1", tt.out) {
				types = append(types, n.Type)
				assert.Equal(t, "run-1", n.Details["run_id"])
			}
			assert.Equal(t, tt.want, types)
		})
	}
}

func TestTerminalSendsInBackground(t *testing.T) {
	var r receiver
	ts := r.server(t, http.StatusOK)
	w := NewWebhook(config.WebhookConfig{URL: ts.URL})

	var sink mining.Sink = w
	sink.LeadsAppended("run-1", nil)
	sink.Progress("run-1", 1, 0)
	sink.Terminal("run-1", mining.Outcome{Reason: model.RunStatusFailed, Err: errors.New("x"), Message: "x"})
	sink.Terminal("run-2", mining.Outcome{Reason: model.RunStatusCompleted})
	w.Wait()

	got := r.all()
	require.Len(t, got, 1)
	assert.Equal(t, TypeRunFailed, got[0].Type)
}

package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

func TestHub_PublishFiltersByAccount(t *testing.T) {
	h := NewHub()
	all := h.Subscribe("")
	mine := h.Subscribe("acct-1")
	other := h.Subscribe("acct-2")
	defer h.Unsubscribe(all)
	defer h.Unsubscribe(mine)
	defer h.Unsubscribe(other)

	h.Publish(New(TypeProgress, "acct-1", "run-1", ProgressData{Batch: 1, Total: 5}))

	assert.Len(t, all, 1)
	assert.Len(t, mine, 1)
	assert.Len(t, other, 0)

	e := <-mine
	assert.Equal(t, TypeProgress, e.Type)
	var p ProgressData
	require.NoError(t, json.Unmarshal(e.Data, &p))
	assert.Equal(t, 5, p.Total)
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("")
	for range DefaultBuffer + 5 {
		h.Publish(New(TypePing, "", "", nil))
	}
	assert.Len(t, ch, DefaultBuffer)
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("")
	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	assert.Equal(t, 0, h.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestEvent_JSONEnvelope(t *testing.T) {
	e := New(TypeTerminal, "acct-1", "run-9", TerminalData{Reason: "completed"})
	var m map[string]any
	require.NoError(t, json.Unmarshal(e.JSON(), &m))
	assert.Equal(t, "search.terminal", m["type"])
	assert.Equal(t, float64(1), m["v"])
	assert.Equal(t, "run-9", m["run_id"])
	assert.NotContains(t, m, "AccountID")
	assert.Contains(t, m, "at")
}

func TestHubSink_RoutesRunEvents(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("acct-1")
	defer h.Unsubscribe(ch)

	s := NewHubSink(h)
	require.NoError(t, s.RunStarted(t.Context(), mining.RunContext{RunID: "run-1", AccountID: "acct-1"}))

	s.LeadsAppended("run-1", []model.Lead{{ID: "l1", Company: "Acme"}})
	s.Progress("run-1", 1, 1)
	s.Terminal("run-1", mining.Outcome{Reason: model.RunStatusCompleted, Batches: 1, TotalLeads: 1, Credits: 1})
	s.LeadStatusChanged("acct-1", model.Lead{ID: "l1", Company: "Acme"}, model.LeadStatusNew, model.LeadStatusWon)

	require.Len(t, ch, 4)
	types := []string{(<-ch).Type, (<-ch).Type, (<-ch).Type}
	assert.Equal(t, []string{TypeLeadsAppended, TypeProgress, TypeTerminal}, types)

	status := <-ch
	var sd StatusData
	require.NoError(t, json.Unmarshal(status.Data, &sd))
	assert.Equal(t, "won", sd.To)
	assert.Equal(t, "new", sd.From)
}

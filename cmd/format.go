package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/export"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// formatLeadsList writes a tabular list of leads to w.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tINDUSTRY\tLOCATION\tCONF\tSCORE\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t-------\t--------\t--------\t----\t-----\t------")

	for _, l := range leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%d\t%s\n",
			truncateID(l.ID),
			truncate(l.Company, 30),
			truncate(l.Industry, 20),
			truncate(l.Location, 24),
			l.Confidence,
			l.Score,
			l.Status,
		)
	}
	_ = w.Flush()
}

// formatTransactions writes ledger entries to w.
func formatTransactions(out io.Writer, txs []model.Transaction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t-----------")

	for _, t := range txs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%+d\t%s\n",
			t.Date.Format("2006-01-02 15:04"),
			t.Type,
			t.Amount,
			t.Description,
		)
	}
	_ = w.Flush()
}

// formatPushResults writes per-target CRM push counts to w.
func formatPushResults(out io.Writer, results []export.PushResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TARGET\tPUSHED\tSKIPPED\tFAILED\tERROR")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", r.Target, r.Pushed, r.Skipped, r.Failed, r.Error)
	}
	_ = w.Flush()
}

// formatOutcome writes a run's terminal summary to w.
func formatOutcome(out io.Writer, o mining.Outcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", o.Reason)
	if o.Message != "" {
		_, _ = fmt.Fprintf(w, "Message:\t%s\n", o.Message)
	}
	_, _ = fmt.Fprintf(w, "Batches:\t%d\n", o.Batches)
	_, _ = fmt.Fprintf(w, "Leads:\t%d\n", o.TotalLeads)
	_, _ = fmt.Fprintf(w, "Credits spent:\t%d\n", o.Credits)
	if o.CostUSD > 0 {
		_, _ = fmt.Fprintf(w, "LLM cost:\t$%.4f\n", o.CostUSD)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

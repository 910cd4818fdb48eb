package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/export"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/notify"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads and move them through the pipeline",
}

// leadFilterFlags registers the lead filter flags shared by leads list
// and the export commands.
func leadFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "account email or ID (required)")
	cmd.Flags().String("run", "", "only leads from this run")
	cmd.Flags().String("query", "", "search query contains")
	cmd.Flags().String("location", "", "location contains")
	cmd.Flags().String("industry", "", "industry contains")
	cmd.Flags().String("status", "", "pipeline status (new, contacted, qualified, negotiation, won, lost)")
	cmd.Flags().Int("min-score", 0, "minimum lead score")
}

// leadFilterFrom reads the shared filter flags. The account is resolved
// against st.
func leadFilterFrom(ctx context.Context, cmd *cobra.Command, st store.Store) (model.LeadFilter, error) {
	ref, _ := cmd.Flags().GetString("account")
	acct, err := resolveAccount(ctx, st, ref)
	if err != nil {
		return model.LeadFilter{}, err
	}
	f := model.LeadFilter{AccountID: acct.ID}
	f.RunID, _ = cmd.Flags().GetString("run")
	f.Query, _ = cmd.Flags().GetString("query")
	f.Location, _ = cmd.Flags().GetString("location")
	f.Industry, _ = cmd.Flags().GetString("industry")
	f.MinScore, _ = cmd.Flags().GetInt("min-score")
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		status, err := model.ParseLeadStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an account's leads, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := leadFilterFrom(ctx, cmd, st)
		if err != nil {
			return err
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Offset, _ = cmd.Flags().GetInt("offset")

		leads, total, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(leads)
		}
		formatLeadsList(os.Stdout, leads)
		fmt.Fprintf(os.Stderr, "%d of %d leads\n", len(leads), total)
		return nil
	},
}

// -- leads status --

var leadsStatusCmd = &cobra.Command{
	Use:   "status <lead-id> <status>",
	Short: "Set a lead's pipeline status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		to, err := model.ParseLeadStatus(args[1])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		from, err := st.UpdateLeadStatus(ctx, args[0], to)
		if err != nil {
			return eris.Wrap(err, "leads status")
		}
		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "leads status")
		}
		fmt.Fprintf(os.Stdout, "%s: %s -> %s\n", lead.Company, from, to)

		if webhook := notify.NewWebhook(cfg.Webhook); webhook.Enabled() && from != to {
			if !webhook.LeadStatusChanged(ctx, *lead, from, to) {
				zap.L().Warn("status webhook not delivered", zap.String("lead_id", lead.ID))
			}
		}
		if crm, _ := cmd.Flags().GetBool("crm"); crm && from != to {
			export.SyncStatus(ctx, *lead, initPushers()...)
		}
		return nil
	},
}

func init() {
	leadFilterFlags(leadsListCmd)
	leadsListCmd.Flags().Int("limit", model.DefaultPageSize, "max number of leads to display")
	leadsListCmd.Flags().Int("offset", 0, "skip this many leads")
	leadsListCmd.Flags().Bool("json", false, "print leads as JSON")
	leadsStatusCmd.Flags().Bool("crm", false, "mirror the new status to configured CRMs")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsStatusCmd)
	rootCmd.AddCommand(leadsCmd)
}

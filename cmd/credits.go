package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Inspect and adjust credit balances",
}

// -- credits balance --

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show an account's credit balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acct, err := resolveAccount(ctx, st, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s\t%d credits\t%s\n", acct.Email, acct.Credits, acct.Plan)
		return nil
	},
}

// -- credits add --

var creditsAddCmd = &cobra.Command{
	Use:   "add <account> <amount>",
	Short: "Grant credits, optionally as a plan purchase",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var amount int
		if _, err := fmt.Sscanf(args[1], "%d", &amount); err != nil || amount <= 0 {
			return eris.Errorf("amount must be a positive integer, got %q", args[1])
		}
		planFlag, _ := cmd.Flags().GetString("plan")
		note, _ := cmd.Flags().GetString("note")

		credit, err := buildCredit(amount, planFlag, note)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acct, err := resolveAccount(ctx, st, args[0])
		if err != nil {
			return err
		}
		credit.AccountID = acct.ID
		balance, err := st.AddCredits(ctx, credit)
		if err != nil {
			return eris.Wrap(err, "credits add")
		}
		fmt.Fprintf(os.Stdout, "%s: +%d credits, balance %d\n", acct.Email, amount, balance)
		return nil
	},
}

// buildCredit turns the add flags into a ledger entry. A plan makes it a
// purchase that also upgrades the account; otherwise it is a bonus.
func buildCredit(amount int, plan, note string) (store.Credit, error) {
	c := store.Credit{Amount: amount, Type: model.TxBonus, Description: note}
	if p := model.Plan(strings.ToLower(strings.TrimSpace(plan))); p != "" {
		if p != model.PlanPro && p != model.PlanEnterprise {
			return c, eris.Errorf("plan must be pro or enterprise, got %q", plan)
		}
		c.Type = model.TxPurchase
		c.Plan = p
		if c.Description == "" {
			c.Description = store.PurchaseDescription(p)
		}
	}
	if c.Description == "" {
		c.Description = "Manual credit grant"
	}
	return c, nil
}

// -- credits history --

var creditsHistoryCmd = &cobra.Command{
	Use:   "history <account>",
	Short: "List an account's ledger entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acct, err := resolveAccount(ctx, st, args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		txs, err := st.Transactions(ctx, acct.ID, limit)
		if err != nil {
			return eris.Wrap(err, "credits history")
		}
		if len(txs) == 0 {
			fmt.Fprintln(os.Stderr, "No transactions found.")
			return nil
		}
		formatTransactions(os.Stdout, txs)
		return nil
	},
}

func init() {
	creditsAddCmd.Flags().String("plan", "", "record as a purchase of this plan (pro, enterprise)")
	creditsAddCmd.Flags().String("note", "", "ledger description")
	creditsHistoryCmd.Flags().Int("limit", 50, "max number of entries to display")

	creditsCmd.AddCommand(creditsBalanceCmd)
	creditsCmd.AddCommand(creditsAddCmd)
	creditsCmd.AddCommand(creditsHistoryCmd)
	rootCmd.AddCommand(creditsCmd)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

var mineCmd = &cobra.Command{
	Use:   "mine <query>",
	Short: "Run a mining search from the command line",
	Long:  "Mines leads for a query until the batch limit, the balance or three empty batches stop it. Ctrl-C stops the run and keeps the leads found so far.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initMining(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ref, _ := cmd.Flags().GetString("account")
		acct, err := resolveAccount(ctx, env.Store, ref)
		if err != nil {
			return err
		}

		location, _ := cmd.Flags().GetString("location")
		industry, _ := cmd.Flags().GetString("industry")
		size, _ := cmd.Flags().GetString("size")
		maxBatches, _ := cmd.Flags().GetInt("max-batches")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		out, _ := cmd.Flags().GetString("out")

		progress := mining.FuncSink{
			OnProgress: func(_ string, batch, total int) {
				fmt.Fprintf(os.Stderr, "batch %d: %d leads\n", batch, total)
			},
		}
		// Cancelling ctx stops the run; Wait below still collects its result.
		session := mining.NewSession(ctx, env.Miner, mining.MultiSink{mining.NewPersisting(env.Store), progress})
		defer session.Shutdown()

		rc, err := session.Start(ctx, mining.RunContext{
			AccountID: acct.ID,
			Query:     strings.Join(args, " "),
			Constraints: model.Constraints{
				Location: location,
				Industry: industry,
				Size:     size,
			},
			MaxBatches: maxBatches,
			BatchSize:  batchSize,
		}, mining.StartOptions{})
		if err != nil {
			return eris.Wrap(err, "mine")
		}
		zap.L().Info("mining started", zap.String("run_id", rc.RunID), zap.String("account", acct.Email))

		res, err := session.Wait(context.WithoutCancel(ctx), acct.ID)
		if err != nil {
			return eris.Wrap(err, "mine")
		}

		formatOutcome(os.Stderr, res.Outcome)
		if out != "" {
			if err := writeLeadsFile(out, rc.Query, res.Leads); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d leads to %s\n", len(res.Leads), out)
			return nil
		}
		formatLeadsList(os.Stdout, res.Leads)
		return nil
	},
}

// resolveAccount finds an account by ID, or signs an email in, creating
// it with the signup bonus on first use.
func resolveAccount(ctx context.Context, st store.Store, ref string) (*model.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, eris.New("--account is required (email or account ID)")
	}
	if strings.Contains(ref, "@") {
		acct, created, err := st.Login(ctx, ref, "", cfg.Credits.SignupBonus)
		if err != nil {
			return nil, eris.Wrap(err, "resolve account")
		}
		if created {
			zap.L().Info("account created", zap.String("email", acct.Email), zap.Int("credits", acct.Credits))
		}
		return acct, nil
	}
	acct, err := st.GetAccount(ctx, ref)
	if err != nil {
		return nil, eris.Wrap(err, "resolve account")
	}
	return acct, nil
}

func init() {
	mineCmd.Flags().String("account", "", "account email or ID (required)")
	mineCmd.Flags().String("location", "", "location constraint")
	mineCmd.Flags().String("industry", "", "industry constraint")
	mineCmd.Flags().String("size", "", "company size constraint")
	mineCmd.Flags().Int("max-batches", 0, "stop after this many batches (default from config)")
	mineCmd.Flags().Int("batch-size", 0, "leads requested per batch (default from config)")
	mineCmd.Flags().String("out", "", "write leads to a .csv, .xlsx, .docx or .geojson file")
	rootCmd.AddCommand(mineCmd)
}

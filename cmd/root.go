package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadgenius",
	Short: "AI lead generation with a credit ledger",
	Long:  "Mines B2B leads from a web-grounded LLM, charges one credit per unique lead, and exports or pushes them to CRMs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

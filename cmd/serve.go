package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/api"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/events"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/notify"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/outreach"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LeadGenius API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initMining(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		hub := events.NewHub()
		hubSink := events.NewHubSink(hub)
		webhook := notify.NewWebhook(cfg.Webhook)
		defer webhook.Wait()

		sink := mining.MultiSink{mining.NewPersisting(env.Store), hubSink}
		if webhook.Enabled() {
			sink = append(sink, webhook)
		}
		// Runs outlive the request that started them; Shutdown cancels them.
		session := mining.NewSession(context.WithoutCancel(ctx), env.Miner, sink)
		defer session.Shutdown()

		srv := api.NewServer(api.Deps{
			Store:          env.Store,
			Session:        session,
			Hub:            hub,
			Events:         hubSink,
			Composer:       outreach.NewComposer(env.Backend, cfg.Outreach.ProductName),
			SMS:            initSMS(),
			Researcher:     initResearcher(env.Backend),
			Pushers:        initPushers(),
			Webhook:        webhook,
			Credits:        cfg.Credits,
			Outreach:       cfg.Outreach,
			SMSSender:      cfg.Arkesel.SenderID,
			MinBalance:     cfg.Generation.MinBalance,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

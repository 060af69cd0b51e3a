package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"KumoSentinel/internal/publisher"
	"KumoSentinel/internal/scheduler"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on a schedule and serve the snapshot over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := InitializeApp(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()
			cfg := app.Config

			sched := scheduler.NewScheduler(ctx, app.Runner, app.Dedup, cfg.Output.Paths[0], cfg.Symbol, app.Logger)
			if err := sched.Register(cfg.Schedule.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           publisher.NewRouter(cfg.Output.Paths[0], app.Metrics.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				app.Logger.Info().Str("addr", srv.Addr).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					app.Logger.Error().Err(err).Msg("http server stopped")
					stop()
				}
			}()

			switch {
			case app.Telegram != nil && cfg.Telegram.Polling:
				go app.Telegram.StartPolling(ctx, sched.HandleCommand, app.Logger)
				app.Logger.Info().Msg("telegram polling started")
			case cfg.Telegram.Polling:
				app.Logger.Warn().Msg("telegram.polling set without credentials, commands disabled")
			}

			if cfg.Schedule.RunOnStart {
				app.Logger.Info().Msg("RUN_ON_START enabled, running now")
				go sched.RunNow()
			}

			app.Logger.Info().Str("schedule", cfg.Schedule.Cron).Msg("sentinel is running, press ctrl+c to stop")
			<-ctx.Done()

			app.Logger.Info().Msg("shutdown signal received, stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

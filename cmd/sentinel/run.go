package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"KumoSentinel/internal/pipeline"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate once: fetch, classify, alert, publish",
		Long: `Runs the pipeline once and exits. Too little history is logged and exits 0
without publishing. Data source, state or publish failures exit non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := InitializeApp(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			res, runErr := app.Runner.Run(ctx)
			writeTextfile(app)
			if runErr != nil {
				return runErr
			}
			if res.Status == pipeline.StatusInsufficientHistory {
				c.logger.Info().Msg("exiting without publishing")
			}
			return nil
		},
	}
}

// writeTextfile exports metrics for node_exporter when configured.
func writeTextfile(app *App) {
	path := app.Config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := app.Metrics.WriteTextfile(path); err != nil {
		app.Logger.Warn().Err(err).Str("path", path).Msg("write metrics textfile")
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"KumoSentinel/internal/collector"
	"KumoSentinel/internal/config"
	"KumoSentinel/internal/dedup"
	"KumoSentinel/internal/metrics"
	"KumoSentinel/internal/notifier"
	"KumoSentinel/internal/pipeline"
	"KumoSentinel/internal/publisher"
	"KumoSentinel/internal/recorder"
	"KumoSentinel/internal/state"
)

// App holds the components built from configuration.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    state.Store
	Dedup    *dedup.Deduplicator
	Notifier notifier.Notifier
	Telegram *notifier.TelegramNotifier
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Runner   *pipeline.Runner
}

// Close releases the store and recorder.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.Recorder.Close())
}

// InitializeApp builds every component from cfg. Callers must Close the App.
func InitializeApp(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	fetcher, err := provideFetcher(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("source", fetcher.Name()).Str("symbol", cfg.Symbol).Msg("data source ready")

	col := collector.NewCollector(fetcher, cfg.Symbol, logger)
	col.Days = cfg.DataSource.Days

	store, err := provideStore(cfg)
	if err != nil {
		return nil, err
	}
	dd := dedup.New(store, dedup.WithRetention(cfg.State.RetentionDays), dedup.WithLogger(logger))

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Dedup:    dd,
		Recorder: provideRecorder(cfg, logger),
		Metrics:  metrics.New(),
	}
	app.Notifier, app.Telegram = provideNotifier(cfg, logger)

	app.Runner = pipeline.New(pipeline.Deps{
		Source:        col,
		Dedup:         dd,
		Notifier:      app.Notifier,
		Publisher:     publisher.New(cfg.Output.Paths, logger),
		Recorder:      app.Recorder,
		Metrics:       app.Metrics,
		Symbol:        cfg.Symbol,
		HistoryWindow: cfg.Output.HistoryWindow,
	}, logger)
	return app, nil
}

func provideFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy), nil
	case "polygon":
		return collector.NewPolygonFetcher(cfg.DataSource.APIKey)
	default:
		f := collector.NewYahooFetcher(cfg.Proxy)
		if cfg.DataSource.BaseURL != "" {
			f.BaseURL = cfg.DataSource.BaseURL
		}
		return f, nil
	}
}

func provideStore(cfg *config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case "memory":
		return state.NewMemoryStore(), nil
	case "sqlite":
		return state.NewSQLiteStore(cfg.State.Path)
	case "redis":
		return state.NewRedisStore(state.RedisConfig{
			Addr:     cfg.State.Redis.Addr,
			Password: cfg.State.Redis.Password,
			DB:       cfg.State.Redis.DB,
			Hash:     cfg.State.Redis.Hash,
		})
	case "file", "":
		return state.NewFileStore(cfg.State.Path), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// provideNotifier returns the notification sink and, when configured, the
// Telegram client used for command polling.
func provideNotifier(cfg *config.Config, logger zerolog.Logger) (notifier.Notifier, *notifier.TelegramNotifier) {
	var (
		sinks []notifier.Notifier
		tg    *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tg = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sinks = append(sinks, notifier.WithRetry(tg, cfg.Notify.Retries, logger))
	}
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, notifier.WithRetry(notifier.NewWebhookNotifier(cfg.Webhook.URL), cfg.Notify.Retries, logger))
	}

	switch len(sinks) {
	case 0:
		logger.Warn().Msg("no notification channel configured, alerts will only be logged")
		return notifier.Noop{}, nil
	case 1:
		return sinks[0], tg
	default:
		return notifier.Multi(sinks), tg
	}
}

func provideRecorder(cfg *config.Config, logger zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}

package app

import (
	"context"
	"log/slog"

	"RxivScanner/internal/config"
	"RxivScanner/internal/control"
	"RxivScanner/internal/domain"
	"RxivScanner/internal/filter"
	"RxivScanner/internal/infrastructure/api"
	"RxivScanner/internal/infrastructure/index"
	"RxivScanner/internal/infrastructure/llm"
	"RxivScanner/internal/infrastructure/render"
	"RxivScanner/internal/infrastructure/scheduler"
	"RxivScanner/internal/infrastructure/storage"
	"RxivScanner/internal/infrastructure/telegram"
	"RxivScanner/internal/logging"
	"RxivScanner/internal/ports"
	"RxivScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	audit    *storage.PostgresRepository
}

// New builds a runnable application instance from configuration. Optional
// collaborators (audit store, notifier) stay nil when unconfigured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	// A nil client lets the fetcher install its bounded-timeout default.
	source := api.NewPageFetcher(cfg.API.BaseURL, nil, baseLogger.With("component", "fetcher"))

	var translator ports.Translator
	if cfg.Translator.Endpoint != "" {
		translator = llm.NewTranslator(cfg.Translator.Endpoint, cfg.Translator.Model, cfg.Translator.APIKey,
			baseLogger.With("component", "translator"))
	}

	var audit *storage.PostgresRepository
	if cfg.Database.DSN != "" {
		repo, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("audit store unavailable, continuing without it", "error", err)
		} else {
			audit = repo
		}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	deps := usecase.PipelineDeps{
		Source:     source,
		Translator: translator,
		Writer:     render.NewArtifactWriter(cfg.Output.BaseDir),
		Index:      index.NewStore(cfg.Output.BaseDir, baseLogger.With("component", "index")),
		Notifier:   notifier,
		State:      control.NewState(),
		BaseDir:    cfg.Output.BaseDir,
		Logger:     baseLogger.With("component", "pipeline"),
		OnCompletion: func(c domain.Completion) {
			baseLogger.Debug("record completed",
				"title", c.TitleTranslated,
				"authors", c.Authors,
				"license", c.License,
				"translated", c.UsedTranslation)
		},
	}
	if audit != nil {
		deps.Audit = audit
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: usecase.NewPipeline(deps),
		audit:    audit,
	}
}

// Pipeline exposes the batch controller, mainly for signal raising.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Run executes one batch with the configured parameters, or keeps running
// batches on the configured interval when the scheduler is enabled.
func (a *Application) Run(ctx context.Context) error {
	params := a.params()

	if !a.cfg.Scheduler.Enabled {
		return a.pipeline.Run(ctx, params)
	}

	driver := scheduler.NewTickerScheduler(a.cfg.Scheduler.IntervalDuration())
	sched := usecase.NewScheduler(driver, a.pipeline, params, a.cfg.Scheduler.Location())
	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Close releases held resources such as the audit store connection.
func (a *Application) Close() error {
	if a.audit != nil {
		return a.audit.Close()
	}
	return nil
}

func (a *Application) params() usecase.Params {
	f := a.cfg.Filter
	return usecase.Params{
		StartDate: a.cfg.Batch.StartDate,
		Period:    a.cfg.Batch.Period,
		Server:    a.cfg.API.Server,
		License: filter.LicenseRule{
			Preset:    f.LicensePreset,
			RequireCC: f.RequireCC,
			ExcludeBy: f.ExcludeBy,
			ExcludeNC: f.ExcludeNC,
			ExcludeND: f.ExcludeND,
			ExcludeSA: f.ExcludeSA,
		},
		Keywords: filter.KeywordRule{
			Keywords: filter.ParseKeywords(f.Keywords),
			Mode:     filter.KeywordMode(config.NormalizeKeywordMode(f.KeywordMode)),
		},
	}
}

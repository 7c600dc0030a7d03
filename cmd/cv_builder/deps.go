package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/conversation"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/handlers"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/session"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

const purgeInterval = 10 * time.Minute

// loadConfig layers the config file and the environment over the defaults,
// then applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// app holds everything a command needs to run conversations.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *registry.Registry
	controller *conversation.Controller
	validator  *validation.Validator
	gatherer   prometheus.Gatherer

	closers []func()
}

// Close releases the store, database and LLM client in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the conversation stack described by cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry, err = registry.Load()
	if err != nil {
		return nil, err
	}
	if _, err := a.registry.Locale(types.Language(cfg.DefaultLanguage)); err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promReg)
	a.gatherer = promReg

	renderer, err := buildRenderer(a.registry, cfg)
	if err != nil {
		return nil, err
	}
	table, err := handlers.NewTable(a.registry, renderer)
	if err != nil {
		return nil, err
	}

	vopts := []validation.Option{
		validation.WithLogger(logger),
		validation.WithObserver(metrics),
	}
	if cfg.SemanticValidation {
		judge, err := a.buildJudge(ctx)
		if err != nil {
			return nil, err
		}
		vopts = append(vopts,
			validation.WithJudge(judge),
			validation.WithJudgeTimeout(cfg.JudgeTimeoutDuration()),
		)
	}
	a.validator = validation.New(a.registry, vopts...)

	copts := []conversation.Option{
		conversation.WithLogger(logger),
		conversation.WithObserver(metrics),
	}
	store, archive, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	if archive != nil {
		copts = append(copts, conversation.WithArchive(archive))
	}

	a.controller = conversation.New(a.registry, table, a.validator, store, copts...)
	return a, nil
}

func (a *app) buildJudge(ctx context.Context) (*validation.LLMJudge, error) {
	provider, err := llm.ParseProvider(a.cfg.LLMProvider)
	if err != nil {
		return nil, err
	}

	llmCfg := llm.DefaultGeminiConfig()
	if provider == llm.ProviderOpenAI {
		llmCfg = llm.DefaultOpenAIConfig(a.cfg.OpenAIModel, a.cfg.OpenAIBaseURL)
	}

	client, err := llm.NewClient(ctx, llmCfg, a.cfg.APIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })

	a.logger.Info("semantic validation enabled",
		"provider", provider,
		"model", client.GetModel(llm.TierStandard))
	return validation.NewLLMJudge(client)
}

// buildStore opens the configured session backend. The postgres backend
// also archives completed CVs and purges expired sessions.
func (a *app) buildStore(ctx context.Context) (session.Store, conversation.Archive, error) {
	ttl := a.cfg.TTL()

	switch a.cfg.StoreBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr(),
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, &session.StorageError{Op: "connect", Message: "redis unreachable at " + a.cfg.RedisAddr(), Cause: err}
		}
		a.logger.Info("using redis session store", "addr", a.cfg.RedisAddr(), "ttl", ttl)
		return session.NewRedisStore(rdb, ttl), nil, nil

	case config.BackendPostgres:
		database, err := db.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, &session.StorageError{Op: "connect", Message: "postgres unreachable", Cause: err}
		}
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return nil, nil, err
		}

		purgeCtx, stop := context.WithCancel(context.Background())
		a.closers = append(a.closers, stop)
		go purgeExpired(purgeCtx, database, a.logger)

		archive := conversation.ArchiveFunc(func(ctx context.Context, sessionID string, st *types.State) error {
			id, err := database.ArchiveDocument(ctx, sessionID, st)
			if err != nil {
				return err
			}
			a.logger.Info("archived document", "session_id", sessionID, "document_id", id)
			return nil
		})
		a.logger.Info("using postgres session store", "ttl", ttl)
		return session.NewPostgresStore(database, ttl), archive, nil

	default:
		a.logger.Info("using in-memory session store", "ttl", ttl)
		return session.NewMemoryStore(ttl), nil, nil
	}
}

func purgeExpired(ctx context.Context, database *db.DB, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := database.PurgeExpiredSessions(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warn("failed to purge expired sessions", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

func buildRenderer(reg *registry.Registry, cfg *config.Config) (rendering.Renderer, error) {
	format, ok := rendering.ParseFormat(cfg.RenderFormat)
	if !ok {
		return nil, &config.ConfigurationError{Key: "render_format", Message: fmt.Sprintf("unknown format %q", cfg.RenderFormat)}
	}

	switch format {
	case rendering.FormatText:
		return &rendering.TextRenderer{Registry: reg}, nil
	case rendering.FormatPDF:
		opts := []rendering.PDFOption{}
		if cfg.ChromePath != "" {
			opts = append(opts, rendering.WithChromePath(cfg.ChromePath))
		}
		return rendering.NewPDFRenderer(reg, cfg.OutputDir, cfg.BaseURL, opts...)
	default:
		if cfg.Template != "" {
			return rendering.NewLaTeXRendererFromFile(reg, cfg.Template, cfg.OutputDir, cfg.BaseURL)
		}
		return rendering.NewLaTeXRenderer(reg, cfg.OutputDir, cfg.BaseURL)
	}
}

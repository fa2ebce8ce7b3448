package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"docseek/internal/config"
	"docseek/internal/core"
	"docseek/internal/db"
	"docseek/internal/directory"
	httpserver "docseek/internal/http"
	"docseek/internal/llm"
	"docseek/internal/logger"
)

// symptomFallbackSpecialty is used by the symptoms strategy when no doctor
// lists any of the patient's symptoms.
const symptomFallbackSpecialty = "general"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = gotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	l, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Mode:     cfg.Logger.Mode,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, l *zap.Logger) error {
	dir, err := loadDirectory(cfg.Directory.Path)
	if err != nil {
		return err
	}
	l.Info("doctor directory loaded",
		zap.Int("specialties", dir.Len()),
		zap.String("path", cfg.Directory.Path))

	store, notifier, err := openStore(ctx, cfg.Database, l)
	if err != nil {
		return err
	}
	defer store.Close()

	completion, err := newCompletionService(ctx, cfg.LLM, l)
	if err != nil {
		return err
	}
	router := core.NewRouter(dir)
	selector, err := newSelector(cfg.Matching, completion, dir, router)
	if err != nil {
		return err
	}
	doctors := core.NewDoctorService(dir, selector, l.Named("doctors"))

	srvCfg := httpserver.Config{
		Logger:          l.Named("http"),
		Port:            cfg.HTTPServer.Port,
		Mode:            cfg.HTTPServer.Mode,
		Store:           store,
		Chat:            core.NewChatService(completion, doctors, l.Named("chat")),
		Doctors:         doctors,
		Router:          router,
		Titles:          core.NewTitleGenerator(completion),
		MessageCap:      cfg.Chat.MessageCap,
		HistoryLimit:    cfg.Chat.HistoryLimit,
		RateLimitPerMin: cfg.RateLimit.PerMinute,
	}
	if notifier != nil {
		srvCfg.Notifier = notifier
	}
	srv, err := httpserver.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to construct server: %w", err)
	}
	return srv.Run(ctx)
}

func loadDirectory(path string) (*directory.Directory, error) {
	if path == "" {
		return directory.Default()
	}
	return directory.Load(path)
}

// openStore connects the configured backend. Postgres drivers get goose
// migrations and a LISTEN/NOTIFY notifier; gorm drivers are auto-migrated.
func openStore(ctx context.Context, cfg config.DatabaseConfig, l *zap.Logger) (db.Store, *db.Notifier, error) {
	opts := db.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		PingTimeout:     cfg.PingTimeout,
	}
	switch cfg.Driver {
	case "postgres", "pgx":
		conn, err := db.Connect(ctx, cfg.Driver, cfg.DSN, opts)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		notifier := db.NewNotifier(conn, cfg.DSN, cfg.NotifyChannel, l.Named("notifier"))
		return db.NewRepository(conn), notifier, nil
	default:
		if cfg.Driver == "sqlite" && !strings.HasPrefix(cfg.DSN, "file:") && cfg.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		gdb, err := db.InitGorm(cfg.Driver, cfg.DSN, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return db.NewGormStore(gdb), nil, nil
	}
}

func newCompletionService(ctx context.Context, cfg config.LLMConfig, l *zap.Logger) (*llm.Manager, error) {
	providers := make([]llm.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := llm.NewProvider(ctx, llm.ProviderConfig{
			Name:        pc.Name,
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Temperature: pc.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		l.Info("completion provider configured", zap.String("provider", p.Name()), zap.String("model", p.Model()))
		providers = append(providers, p)
	}
	return llm.NewManager(providers, llm.ManagerConfig{
		FallbackEnabled: cfg.FallbackEnabled,
		RetryAttempts:   cfg.RetryAttempts,
		RetryDelay:      cfg.RetryDelay,
		Timeout:         cfg.Timeout,
	}, l.Named("llm")), nil
}

func newSelector(cfg config.MatchingConfig, completion llm.CompletionService, dir *directory.Directory, router *core.Router) (core.Selector, error) {
	var (
		selector core.Selector
		err      error
	)
	switch cfg.Strategy {
	case "compose":
		selector, err = core.NewComposeSelector(completion, dir)
	case "symptoms":
		// Deterministic; caching buys nothing.
		return core.NewSymptomSelector(dir, router, symptomFallbackSpecialty), nil
	default:
		selector, err = core.NewCompletionSelector(completion, dir)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		selector = core.NewCachedSelector(selector, cfg.CacheSize, cfg.CacheTTL)
	}
	return selector, nil
}

package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/api"
	"github.com/oddsintel/oddsintel/internal/arbitrage"
	"github.com/oddsintel/oddsintel/internal/breaker"
	"github.com/oddsintel/oddsintel/internal/ev"
	"github.com/oddsintel/oddsintel/internal/matching"
	"github.com/oddsintel/oddsintel/internal/notify"
	"github.com/oddsintel/oddsintel/internal/scanner"
	"github.com/oddsintel/oddsintel/internal/storage"
	"github.com/oddsintel/oddsintel/internal/venues"
	"github.com/oddsintel/oddsintel/pkg/cache"
	"github.com/oddsintel/oddsintel/pkg/config"
	"github.com/oddsintel/oddsintel/pkg/healthprobe"
	"github.com/oddsintel/oddsintel/pkg/httpserver"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	adapters := opts.Adapters
	if len(adapters) == 0 {
		responseCache, err := setupCache(logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup cache: %w", err)
		}
		adapters = venues.BuildAdapters(cfg, responseCache, logger)
	}

	journal, err := setupJournal(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup journal: %w", err)
	}

	brk, err := setupBreaker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup breaker: %w", err)
	}

	engine, err := setupEngine(cfg, logger, adapters, brk, journal)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Engine:  engine,
		Breaker: brk,
		Logger:  logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup api handler: %w", err)
	}

	hub, err := api.NewHub(api.HubConfig{
		Engine: engine,
		Logger: logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup websocket hub: %w", err)
	}
	engine.Subscribe(hub)

	notifier := setupNotifier(cfg, logger)
	if notifier != nil {
		engine.Subscribe(notifier)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, handler, hub)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		engine:        engine,
		hub:           hub,
		notifier:      notifier,
		journal:       journal,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New("oddsintel")
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	handler *api.Handler,
	hub *api.Hub,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		API:           handler.Routes(),
		WS:            hub,
	})
}

// setupCache builds the response cache shared by the PredictIt and
// sportsbook adapters.
func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.New(&cache.Config{
		MaxEntries: 1000,
		Logger:     logger,
	})
}

func setupJournal(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case "postgres":
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			DSN:    cfg.PostgresDSN(),
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres journal: %w", err)
		}
		return pgStorage, nil
	case "none":
		return nil, nil
	default:
		return storage.NewConsoleStorage(logger), nil
	}
}

func setupBreaker(cfg *config.Config, logger *zap.Logger) (*breaker.Breaker, error) {
	return breaker.New(breaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		Logger:           logger,
	})
}

func setupEngine(
	cfg *config.Config,
	logger *zap.Logger,
	adapters []venues.Adapter,
	brk *breaker.Breaker,
	journal storage.Storage,
) (*scanner.Engine, error) {
	matcher := matching.New(matching.Config{
		Threshold: cfg.MatchThreshold,
		Logger:    logger,
	})

	arbDetector, err := arbitrage.New(arbitrage.Config{
		MinProfitPct: cfg.MinArbProfitPct,
		StakeUSD:     cfg.DefaultStakeUSD,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create arbitrage detector: %w", err)
	}

	evDetector, err := ev.New(ev.Config{
		MinEVPct: cfg.MinEVPct,
		StakeUSD: cfg.DefaultStakeUSD,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create ev detector: %w", err)
	}

	return scanner.New(scanner.Config{
		Adapters:       adapters,
		Matcher:        matcher,
		ArbDetector:    arbDetector,
		EVDetector:     evDetector,
		Breaker:        brk,
		Journal:        journal,
		Interval:       cfg.ScanInterval,
		AdapterTimeout: cfg.AdapterTimeout,
		Logger:         logger,
	})
}

// setupNotifier builds the Telegram notifier when credentials are present.
// An unreachable Telegram API disables alerting rather than failing startup.
func setupNotifier(cfg *config.Config, logger *zap.Logger) *notify.TelegramNotifier {
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		logger.Info("telegram-alerts-disabled",
			zap.String("reason", "TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set"))
		return nil
	}

	notifier, err := notify.New(notify.Config{
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("telegram-alerts-disabled", zap.Error(err))
		return nil
	}

	return notifier
}

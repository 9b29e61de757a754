package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/api"
	"github.com/oddsintel/oddsintel/internal/notify"
	"github.com/oddsintel/oddsintel/internal/scanner"
	"github.com/oddsintel/oddsintel/internal/storage"
	"github.com/oddsintel/oddsintel/internal/venues"
	"github.com/oddsintel/oddsintel/pkg/config"
	"github.com/oddsintel/oddsintel/pkg/healthprobe"
	"github.com/oddsintel/oddsintel/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	engine        *scanner.Engine
	hub           *api.Hub
	notifier      *notify.TelegramNotifier
	journal       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Adapters overrides the venue adapter set built from configuration.
	// Used by tests and one-shot scans against canned sources.
	Adapters []venues.Adapter
}

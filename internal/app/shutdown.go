package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetNotReady("shutting down")

	// Cancel context to stop the scan loop
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Disconnect WebSocket clients
	a.hub.Close()

	// Drain pending Telegram alerts
	a.shutdownNotifier()

	// Close journal
	err = a.shutdownJournal()
	if err != nil {
		a.logger.Error("journal-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownNotifier() {
	if a.notifier == nil {
		return
	}
	a.notifier.Stop()
}

func (a *App) shutdownJournal() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

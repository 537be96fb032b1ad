package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	sessions  *usecase.SessionManager
	store     drepo.PriceStore
	publisher drepo.QuotePublisher
	handler   xhttp.Handler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	sessions *usecase.SessionManager,
	store drepo.PriceStore,
	publisher drepo.QuotePublisher,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		sessions:  sessions,
		store:     store,
		publisher: publisher,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx := context.Background()

	if err := a.store.Health(ctx); err != nil {
		a.log.Error("price store unhealthy at startup", applogger.Error(err))
		return err
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services: sessions first so schedulers and
// websocket fan-out drain before the HTTP listener goes away.
func (a *App) shutdown(ctx context.Context) error {
	a.sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("price store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}

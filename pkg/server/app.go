package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"macropull/internal/handler/api"
	"macropull/internal/providers/stream"
	"macropull/internal/usecase"
	"macropull/pkg/config"
	xhttp "macropull/pkg/http"
	applogger "macropull/pkg/logger"
)

// App encapsulates the entire application lifecycle: the HTTP surface, the
// optional stream feed read loop, and graceful shutdown of everything the
// data service depends on.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	service    *usecase.DataService
	stream     *stream.Provider // nil when the stream provider is disabled
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	service *usecase.DataService,
	streamProvider *stream.Provider,
) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		service: service,
		stream:  streamProvider,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := api.NewDataHandler(a.logger, a.service)
	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.logger),
	)

	// The stream provider's read loop is owned here, not by the data
	// service: the core never spawns background workers.
	if a.stream != nil {
		go func() {
			if err := a.stream.Connect(ctx); err != nil {
				a.logger.Error("stream connect failed", applogger.Error(err))
			} else if err := a.stream.Subscribe(ctx); err != nil {
				a.logger.Error("stream subscribe failed", applogger.Error(err))
			}
			if err := a.stream.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("stream loop ended", applogger.Error(err))
			}
		}()
		a.logger.Info("stream feed started", applogger.Strings("indicators", a.stream.Indicators()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("serving",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("providers", a.service.Registry().Names()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.logger.Warn("stream close error", applogger.Error(err))
		}
	}

	if err := a.service.Close(); err != nil {
		a.logger.Warn("service close error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}

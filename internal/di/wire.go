//go:build wireinject
// +build wireinject

package di

import (
	"macropull/internal/usecase"
	"macropull/pkg/config"
	"macropull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Cache tiers and providers
		ProvideCacheManager,
		ProvideStreamProvider,
		ProvideRegistry,

		// Downstream announcements
		ProvidePublisher,

		// Orchestration core
		ProvideDataService,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeDataService wires the orchestration core without the HTTP
// surface, for one-shot command line use.
func InitializeDataService(cfg *config.Config) (*usecase.DataService, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCacheManager,
		ProvideStreamProvider,
		ProvideRegistry,
		ProvidePublisher,
		ProvideDataService,
	)
	return nil, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideTickers,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideArtifactCache,

		// Repositories
		ProvidePriceStore,
		ProvideArtifactStore,
		ProvideQuoteGateway,
		ProvideQuotePublisher,

		// Use cases
		ProvideForecastRunner,
		ProvideForecaster,
		ProvideSessionManager,

		// HTTP
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

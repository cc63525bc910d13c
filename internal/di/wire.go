//go:build wireinject
// +build wireinject

package di

import (
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Data plane
		ProvideHTTPClient,
		ProvideQuotaTracker,
		ProvideStream,
		ProvideSources,
		ProvideCache,
		ProvideAggregator,

		// Alerting
		ProvideAlertStore,
		ProvideNotifier,
		ProvideNotifyQueue,
		ProvideEvaluator,

		// Scanning
		ProvideRecentSignals,
		ProvideSignalSink,
		ProvideScanner,

		// Surface
		ProvideScheduler,
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

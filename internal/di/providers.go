package di

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	svccache "StockCast/internal/service/cache"
	"StockCast/internal/service/quotes"
	"StockCast/internal/services/forecast"
	"StockCast/internal/usecase"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickers builds the instrument allow-list.
func ProvideTickers(cfg *config.Config) *models.TickerSet {
	return models.NewTickerSet(cfg.Quotes.Tickers)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePriceStore creates the daily price repository.
func ProvidePriceStore(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.PriceStore {
	store := internalrepo.NewCHPriceStore(chClient, cfg.ClickHouse.Table, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		// The ingest pipeline owns the table in shared environments, so a
		// denied DDL is not fatal.
		log.Warn("price table schema init failed", applogger.Error(err))
	}
	return store
}

// ProvideArtifactCache builds the artifact byte cache: local TTL cache alone,
// or layered over Redis when configured.
func ProvideArtifactCache(cfg *config.Config) svccache.BytesCache {
	local := svccache.NewTTLCache()
	if !cfg.Artifacts.Redis.Enabled {
		return local
	}
	shared := svccache.NewRedisCache(svccache.RedisConfig{
		Addr:     cfg.Artifacts.Redis.Addr,
		Password: cfg.Artifacts.Redis.Password,
		DB:       cfg.Artifacts.Redis.DB,
	})
	return svccache.NewLayeredBytesCache(local, shared, cfg.Artifacts.CacheTTL)
}

// ProvideArtifactStore creates the HTTP artifact repository.
func ProvideArtifactStore(cfg *config.Config, cache svccache.BytesCache, log *applogger.Logger) repository.ArtifactStore {
	httpc := xhttp.NewClient(xhttp.WithTimeout(cfg.Artifacts.Timeout))
	return internalrepo.NewHTTPArtifactStore(cfg.Artifacts.BaseURL, httpc, cache, log,
		internalrepo.WithArtifactCacheTTL(cfg.Artifacts.CacheTTL))
}

// ProvideQuoteGateway creates the chart-API quote gateway.
func ProvideQuoteGateway(cfg *config.Config, log *applogger.Logger) repository.QuoteGateway {
	return quotes.New(cfg.Quotes.BaseURL, log,
		quotes.WithTimeout(cfg.Quotes.Timeout),
		quotes.WithInterval(cfg.Quotes.Interval),
		quotes.WithRange(cfg.Quotes.Range))
}

// ProvideQuotePublisher creates the Kafka publisher, or nil when Kafka is
// disabled.
func ProvideQuotePublisher(cfg *config.Config) (repository.QuotePublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaQuotePublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideForecastRunner creates the inference runner.
func ProvideForecastRunner(artifacts repository.ArtifactStore, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *forecast.Runner {
	return forecast.NewRunner(artifacts, m, log,
		forecast.WithArtifactTTL(cfg.Forecast.ArtifactTTL))
}

// ProvideForecaster creates the forecast pipeline use case.
func ProvideForecaster(tickers *models.TickerSet, store repository.PriceStore, runner *forecast.Runner, log *applogger.Logger, cfg *config.Config) *usecase.Forecaster {
	return usecase.NewForecaster(tickers, store, runner, log,
		usecase.WithHistoryDays(cfg.Forecast.HistoryDays))
}

// ProvideSessionManager creates the live session manager.
func ProvideSessionManager(
	tickers *models.TickerSet,
	gateway repository.QuoteGateway,
	publisher repository.QuotePublisher,
	m repository.Metrics,
	fc *usecase.Forecaster,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.SessionManager {
	return usecase.NewSessionManager(tickers, gateway, publisher, m, fc, log,
		usecase.WithSchedulerOptions(
			usecase.WithCadence(cfg.Quotes.ForegroundCadence, cfg.Quotes.BackgroundCadence)))
}

// ProvideHTTPHandler bundles the REST and websocket handlers.
func ProvideHTTPHandler(
	log *applogger.Logger,
	tickers *models.TickerSet,
	sessions *usecase.SessionManager,
	gateway repository.QuoteGateway,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewForecastHandler(log, tickers, sessions, gateway),
		api.NewQuoteStreamHandler(log, sessions),
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	sessions *usecase.SessionManager,
	store repository.PriceStore,
	publisher repository.QuotePublisher,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, sessions, store, publisher, handler)
}

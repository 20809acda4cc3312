package di

import (
	"fmt"

	"macropull/internal/cache"
	"macropull/internal/domain/models"
	drepo "macropull/internal/domain/repository"
	"macropull/internal/providers/localfile"
	"macropull/internal/providers/stream"
	"macropull/internal/providers/worldbank"
	"macropull/internal/registry"
	internalrepo "macropull/internal/repository"
	"macropull/internal/usecase"
	pkgcache "macropull/pkg/cache"
	"macropull/pkg/config"
	pkgkafka "macropull/pkg/kafka"
	applogger "macropull/pkg/logger"
	"macropull/pkg/metrics"
	"macropull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideCacheManager builds the two-tier cache from configuration.
func ProvideCacheManager(cfg *config.Config) (*cache.Manager, error) {
	fast := pkgcache.NewMemoryTier(pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))

	var durable pkgcache.Tier
	switch cfg.Cache.DurableBackend {
	case "sqlite":
		tier, err := pkgcache.NewSQLiteTier(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite tier: %w", err)
		}
		durable = tier
	case "redis":
		tier, err := pkgcache.NewRedisTier(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis tier: %w", err)
		}
		durable = tier
	case "none":
		// fast tier only
	}

	return cache.NewManager(fast, durable,
		cache.WithEnabled(cfg.Cache.Enabled),
		cache.WithTTL(models.FrequencyRealtime, cfg.Cache.TTL.Realtime),
		cache.WithTTL(models.FrequencyDaily, cfg.Cache.TTL.Daily),
		cache.WithTTL(models.FrequencyMonthly, cfg.Cache.TTL.Monthly),
		cache.WithTTL(models.FrequencyQuarterly, cfg.Cache.TTL.Quarterly),
		cache.WithTTL(models.FrequencyAnnual, cfg.Cache.TTL.Annual),
	), nil
}

// ProvideStreamProvider creates the WebSocket feed provider, nil when
// disabled.
func ProvideStreamProvider(cfg *config.Config, logger *applogger.Logger) (*stream.Provider, error) {
	if !cfg.Providers.Stream.Enabled {
		return nil, nil
	}
	return stream.New(
		cfg.Providers.Stream.URL,
		cfg.Providers.Stream.Token,
		cfg.Providers.Stream.Indicators,
		cfg.Providers.Stream.ReconnectDelay,
		cfg.Providers.Stream.PingInterval,
		stream.WithWindowSize(cfg.Providers.Stream.WindowSize),
		stream.WithLogger(logger),
	)
}

// ProvideRegistry builds and populates the provider registry. Registration
// order sets default priority: the near-real-time stream first, then curated
// local files, then the generic remote API. Config priority overrides can
// reorder per indicator.
func ProvideRegistry(cfg *config.Config, streamProvider *stream.Provider) (*registry.Registry, error) {
	reg := registry.New()

	if streamProvider != nil {
		reg.Register(streamProvider)
	}

	if cfg.Providers.LocalFile.Enabled {
		p, err := localfile.New(cfg.Providers.LocalFile.Dir)
		if err != nil {
			return nil, fmt.Errorf("localfile provider: %w", err)
		}
		reg.Register(p)
	}

	if cfg.Providers.WorldBank.Enabled {
		codes := make(map[string]string)
		for indicator, spec := range cfg.Indicators {
			if spec.WorldBankCode != "" {
				codes[indicator] = spec.WorldBankCode
			}
		}
		p, err := worldbank.New(codes,
			worldbank.WithBaseURL(cfg.Providers.WorldBank.BaseURL),
			worldbank.WithAPIKey(cfg.Providers.WorldBank.APIKey),
			worldbank.WithPerPage(cfg.Providers.WorldBank.PerPage),
		)
		if err != nil {
			return nil, fmt.Errorf("worldbank provider: %w", err)
		}
		reg.Register(p)
	}

	for indicator, names := range cfg.Priority {
		reg.SetPriority(indicator, names)
	}

	return reg, nil
}

// ProvidePublisher creates the downstream announcement publisher: Kafka when
// enabled, a nop otherwise.
func ProvidePublisher(cfg *config.Config) (drepo.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaSeriesPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideDataService assembles the orchestration core.
func ProvideDataService(
	cfg *config.Config,
	reg *registry.Registry,
	cm *cache.Manager,
	pub drepo.EventPublisher,
	m drepo.Metrics,
	logger *applogger.Logger,
) *usecase.DataService {
	policy := usecase.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		BackoffMin: cfg.Retry.BackoffMin,
		BackoffMax: cfg.Retry.BackoffMax,
		Timeout:    cfg.Retry.Timeout,
	}

	opts := []usecase.Option{
		usecase.WithRetryPolicy(policy),
		usecase.WithPublisher(pub),
		usecase.WithMetrics(m),
		usecase.WithLogger(logger),
		usecase.WithDedupe(cfg.Dedupe),
		usecase.WithFrequencyResolver(frequencyResolver(cfg)),
	}

	wb := cfg.Providers.WorldBank
	if wb.Enabled && (wb.Timeout != policy.Timeout || wb.MaxRetries >= 0) {
		wbPolicy := policy
		wbPolicy.Timeout = wb.Timeout
		if wb.MaxRetries >= 0 {
			wbPolicy.MaxRetries = wb.MaxRetries
		}
		opts = append(opts, usecase.WithProviderPolicy("worldbank", wbPolicy))
	}

	return usecase.NewDataService(reg, cm, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	service *usecase.DataService,
	streamProvider *stream.Provider,
) *server.App {
	return server.New(cfg, logger, service, streamProvider)
}

func frequencyResolver(cfg *config.Config) func(string) models.FrequencyClass {
	classes := make(map[string]models.FrequencyClass, len(cfg.Indicators))
	for indicator, spec := range cfg.Indicators {
		classes[indicator] = models.ParseFrequency(spec.Frequency)
	}
	return func(indicator string) models.FrequencyClass {
		if class, ok := classes[indicator]; ok {
			return class
		}
		return models.FrequencyAnnual
	}
}

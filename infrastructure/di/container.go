// Package di wires the application together from configuration.
package di

import (
	"context"
	"errors"
	"fmt"

	cmdhandlers "mindtrack/application/commands/handlers"
	"mindtrack/application/queries"
	"mindtrack/application/services"
	"mindtrack/infrastructure/config"
	"mindtrack/infrastructure/observability"
	"mindtrack/infrastructure/persistence"
	"mindtrack/infrastructure/persistence/outbox"
	"mindtrack/interfaces/http/rest"
	"mindtrack/pkg/auth"

	"go.uber.org/zap"
)

// Container holds the process-wide collaborators
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	LogLevel  zap.AtomicLevel
	Metrics   *observability.Collector
	Tracer    *observability.TracerProvider
	Stores    *persistence.Stores
	Processor *outbox.Processor

	Identity     *services.IdentityService
	Orchestrator *cmdhandlers.SubmitEntryOrchestrator
	Queries      *queries.EntryQueryService

	LoginLimiter   *auth.TokenBucketLimiter
	JournalLimiter *auth.TokenBucketLimiter

	watcher *config.Watcher
}

// InitializeContainer builds every collaborator for cfg
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, level, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		LogLevel: level,
		Metrics:  observability.NewCollector("mindtrack"),
	}

	if cfg.EnableTracing {
		tp, err := observability.InitTracing(ctx, rest.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		c.Tracer = tp
	}

	client, err := ProvideSupabaseClient(cfg)
	if err != nil {
		_ = c.Shutdown(ctx)
		return nil, err
	}
	if c.Stores, err = ProvideStores(ctx, cfg, client, logger); err != nil {
		_ = c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create stores: %w", err)
	}

	validator, err := ProvideTokenValidator(cfg)
	if err != nil {
		_ = c.Shutdown(ctx)
		return nil, err
	}

	insights := services.NewInsightService(ProvideLLMProvider(cfg, logger), cfg.GroqModel)
	c.Orchestrator = ProvideOrchestrator(cfg, insights, c.Stores, c.Metrics, logger)
	c.Processor = ProvideOutboxProcessor(cfg, c.Stores, c.Metrics, logger)
	c.Identity = ProvideIdentityService(cfg, ProvideIdentityProvider(cfg, logger), validator, logger)
	c.Queries = queries.NewEntryQueryService(c.Stores.Primary, logger.Sugar().Named("queries"), cfg.StoreTimeout)

	c.LoginLimiter = auth.NewTokenBucketLimiter(cfg.LoginRatePerMinute, 0)
	c.JournalLimiter = auth.NewTokenBucketLimiter(cfg.JournalRatePerMinute, 0)

	if cfg.IsDevelopment() && cfg.ConfigFile != "" {
		w, err := config.NewWatcher(cfg.ConfigFile, level, logger)
		if err != nil {
			logger.Warn("Config hot reload unavailable", zap.Error(err))
		} else {
			c.watcher = w
		}
	}

	return c, nil
}

// RouterDependencies returns what the HTTP router needs
func (c *Container) RouterDependencies() rest.Dependencies {
	return rest.Dependencies{
		Identity:     c.Identity,
		Orchestrator: c.Orchestrator,
		Queries:      c.Queries,
		Readiness: []rest.ReadinessCheck{
			{Name: "primary", Ping: c.Stores.Primary.Ping},
			{Name: "secondary", Ping: c.Stores.Secondary.Ping},
		},
		Metrics: c.Metrics,
		LoginLimit: &rest.RateLimit{
			Limiter:   auth.NewIPRateLimiter(c.LoginLimiter),
			PerMinute: c.Config.LoginRatePerMinute,
		},
		JournalLimit: &rest.RateLimit{
			Limiter:   auth.NewIPRateLimiter(c.JournalLimiter),
			PerMinute: c.Config.JournalRatePerMinute,
		},
		CORSAllowedOrigins: c.Config.CORSAllowedOrigins,
		SecureCookies:      c.Config.IsProduction(),
		EnableTracing:      c.Config.EnableTracing,
		TrustProxyHeaders:  c.Config.TrustProxyHeaders,
		Debug:              c.Config.IsDevelopment(),
	}
}

// Shutdown stops background work and releases connections in reverse
// order of creation
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.Processor != nil {
		c.Processor.Stop()
	}
	if c.Stores != nil {
		if err := c.Stores.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close stores: %w", err))
		}
	}
	if err := c.Tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush traces: %w", err))
	}
	return errors.Join(errs...)
}

package di

import (
	"context"
	"fmt"

	cmdhandlers "mindtrack/application/commands/handlers"
	"mindtrack/application/ports"
	"mindtrack/application/services"
	"mindtrack/domain/identity"
	"mindtrack/infrastructure/config"
	supaidentity "mindtrack/infrastructure/identity/supabase"
	"mindtrack/infrastructure/llm"
	"mindtrack/infrastructure/observability"
	"mindtrack/infrastructure/persistence"
	"mindtrack/infrastructure/persistence/outbox"
	"mindtrack/infrastructure/persistence/supabase"
	"mindtrack/pkg/auth"
	apperrors "mindtrack/pkg/errors"

	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// ProvideLogger creates the process logger and its adjustable level
func ProvideLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	return observability.NewLogger(cfg.Environment, cfg.LogLevel)
}

// ProvideSupabaseClient creates the PostgREST client, or nil when the
// memory driver is used
func ProvideSupabaseClient(cfg *config.Config) (*supa.Client, error) {
	if cfg.StoreDriver != config.StoreDriverSupabase {
		return nil, nil
	}
	return supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)
}

// ProvideStores creates the primary, secondary and outbox stores
func ProvideStores(ctx context.Context, cfg *config.Config, client *supa.Client, logger *zap.Logger) (*persistence.Stores, error) {
	return persistence.NewStoreFactory(logger).CreateStores(ctx, cfg, client)
}

// ProvideLLMProvider creates the completion provider behind a circuit
// breaker
func ProvideLLMProvider(cfg *config.Config, logger *zap.Logger) llm.Provider {
	var provider llm.Provider
	switch cfg.InsightProvider {
	case config.InsightProviderMock:
		logger.Warn("Using mock insight provider")
		provider = llm.NewMockProvider()
	default:
		provider = llm.NewGroqProvider(llm.GroqConfig{
			APIKey:   cfg.GroqAPIKey,
			Endpoint: cfg.GroqEndpoint,
			Model:    cfg.GroqModel,
			Timeout:  cfg.InsightTimeout,
		})
	}
	return llm.NewBreakerProvider(provider, llm.DefaultBreakerConfig("insights"), logger)
}

// ProvideIdentityProvider creates the GoTrue-backed identity provider.
// Without Supabase settings every identity call fails with an auth error.
func ProvideIdentityProvider(cfg *config.Config, logger *zap.Logger) ports.IdentityProvider {
	if !cfg.HasIdentityProvider() {
		logger.Warn("Supabase auth is not configured; sign-in is disabled")
		return unconfiguredIdentity{}
	}
	client := supaidentity.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseKey)
	return supaidentity.NewProvider(client, cfg.AuthTimeout, logger)
}

// ProvideTokenValidator creates a local access-token validator when the
// project JWT secret is known
func ProvideTokenValidator(cfg *config.Config) (*auth.TokenValidator, error) {
	if cfg.SupabaseJWTSecret == "" {
		return nil, nil
	}
	validator, err := auth.NewTokenValidator(cfg.SupabaseJWTSecret, auth.DefaultAudience)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}
	return validator, nil
}

// ProvideOrchestrator creates the submission orchestrator
func ProvideOrchestrator(
	cfg *config.Config,
	insights ports.InsightGenerator,
	stores *persistence.Stores,
	metrics ports.Metrics,
	logger *zap.Logger,
) *cmdhandlers.SubmitEntryOrchestrator {
	return cmdhandlers.NewSubmitEntryOrchestrator(
		insights,
		stores.Primary,
		stores.Secondary,
		stores.Outbox,
		metrics,
		logger.Sugar().Named("submit"),
		cmdhandlers.Timeouts{Insight: cfg.InsightTimeout, Store: cfg.StoreTimeout},
	)
}

// ProvideOutboxProcessor creates the mirror retry processor
func ProvideOutboxProcessor(cfg *config.Config, stores *persistence.Stores, metrics ports.Metrics, logger *zap.Logger) *outbox.Processor {
	pcfg := outbox.DefaultConfig()
	pcfg.Interval = cfg.OutboxInterval
	pcfg.MaxAttempts = cfg.OutboxMaxAttempts
	return outbox.NewProcessor(stores.Outbox, stores.Secondary, metrics, pcfg, logger.Named("outbox"))
}

// ProvideIdentityService creates the sign-in service
func ProvideIdentityService(cfg *config.Config, provider ports.IdentityProvider, validator *auth.TokenValidator, logger *zap.Logger) *services.IdentityService {
	return services.NewIdentityService(provider, validator, cfg.CallbackURL(), logger.Sugar().Named("identity"))
}

// unconfiguredIdentity rejects every call
type unconfiguredIdentity struct{}

func (unconfiguredIdentity) err() error {
	return apperrors.NewAuthError("identity provider is not configured")
}

func (u unconfiguredIdentity) SendMagicLink(context.Context, string, string) error {
	return u.err()
}

func (u unconfiguredIdentity) SessionFromTokens(context.Context, string, string) (*identity.Session, error) {
	return nil, u.err()
}

func (u unconfiguredIdentity) Refresh(context.Context, string) (*identity.Session, error) {
	return nil, u.err()
}

func (u unconfiguredIdentity) SignOut(context.Context, string) error {
	return nil
}

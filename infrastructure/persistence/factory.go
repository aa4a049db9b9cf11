// Package persistence assembles the entry stores and the mirror outbox for
// the configured driver.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"mindtrack/application/ports"
	"mindtrack/infrastructure/config"
	"mindtrack/infrastructure/persistence/memory"
	"mindtrack/infrastructure/persistence/mongodb"
	"mindtrack/infrastructure/persistence/redis"
	"mindtrack/infrastructure/persistence/supabase"

	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// StoreType represents the type of store implementation.
type StoreType string

const (
	StoreTypeSupabase StoreType = "supabase"
	StoreTypeMongoDB  StoreType = "mongodb"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeMemory   StoreType = "memory"
)

// Stores is the set of persistence collaborators the application needs
type Stores struct {
	Primary   ports.PrimaryEntryStore
	Secondary ports.SecondaryEntryStore
	Outbox    ports.MirrorOutbox

	// Types records which implementation backs each role
	Types map[string]StoreType

	closers []func(context.Context) error
}

// Close releases every connection the stores hold
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreFactory creates stores from configuration
type StoreFactory struct {
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory.
func NewStoreFactory(logger *zap.Logger) *StoreFactory {
	return &StoreFactory{logger: logger}
}

// GetSupportedTypes returns the list of supported store types.
func (f *StoreFactory) GetSupportedTypes() []string {
	return []string{
		string(StoreTypeSupabase),
		string(StoreTypeMongoDB),
		string(StoreTypeRedis),
		string(StoreTypeMemory),
	}
}

// CreateStores builds the stores for cfg. client is required for the
// supabase driver and ignored otherwise.
func (f *StoreFactory) CreateStores(ctx context.Context, cfg *config.Config, client *supa.Client) (*Stores, error) {
	stores := &Stores{Types: make(map[string]StoreType)}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		stores.Primary = memory.NewEntryStore()
		stores.Secondary = memory.NewMirrorStore()
		stores.Types["primary"] = StoreTypeMemory
		stores.Types["secondary"] = StoreTypeMemory

	case config.StoreDriverSupabase:
		if client == nil {
			return nil, fmt.Errorf("supabase client not provided")
		}
		stores.Primary = supabase.NewEntryRepository(client, cfg.EntriesTable, f.logger)
		stores.Types["primary"] = StoreTypeSupabase

		mirror, err := mongodb.Connect(ctx, mongodb.Config{
			URI:                    cfg.MongoURI,
			Database:               cfg.MongoDatabase,
			ServerSelectionTimeout: cfg.StoreTimeout,
		}, f.logger)
		if err != nil {
			return nil, err
		}
		stores.Secondary = mirror
		stores.Types["secondary"] = StoreTypeMongoDB
		stores.closers = append(stores.closers, mirror.Close)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreDriver)
	}

	if err := f.createOutbox(ctx, cfg, stores); err != nil {
		_ = stores.Close(ctx)
		return nil, err
	}

	f.logger.Info("Stores created",
		zap.String("primary", string(stores.Types["primary"])),
		zap.String("secondary", string(stores.Types["secondary"])),
		zap.String("outbox", string(stores.Types["outbox"])),
	)
	return stores, nil
}

func (f *StoreFactory) createOutbox(ctx context.Context, cfg *config.Config, stores *Stores) error {
	if cfg.RedisURL == "" {
		stores.Outbox = memory.NewOutbox()
		stores.Types["outbox"] = StoreTypeMemory
		return nil
	}

	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	stores.Outbox = redis.NewOutbox(client, "", f.logger)
	stores.Types["outbox"] = StoreTypeRedis
	stores.closers = append(stores.closers, func(context.Context) error {
		return client.Close()
	})
	return nil
}

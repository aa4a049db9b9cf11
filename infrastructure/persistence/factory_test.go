package persistence

import (
	"context"
	"testing"

	"mindtrack/infrastructure/config"
	"mindtrack/infrastructure/persistence/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.StoreDriver = config.StoreDriverMemory
	return cfg
}

func TestCreateStores_Memory(t *testing.T) {
	f := NewStoreFactory(zap.NewNop())

	stores, err := f.CreateStores(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer stores.Close(context.Background())

	assert.IsType(t, &memory.EntryStore{}, stores.Primary)
	assert.IsType(t, &memory.MirrorStore{}, stores.Secondary)
	assert.IsType(t, &memory.Outbox{}, stores.Outbox)
	assert.Equal(t, StoreTypeMemory, stores.Types["outbox"])
}

func TestCreateStores_RedisOutbox(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	stores, err := NewStoreFactory(zap.NewNop()).CreateStores(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, StoreTypeRedis, stores.Types["outbox"])
	assert.NoError(t, stores.Close(context.Background()))
}

func TestCreateStores_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + addr

	_, err := NewStoreFactory(zap.NewNop()).CreateStores(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach redis")
}

func TestCreateStores_SupabaseNeedsClient(t *testing.T) {
	cfg := config.Defaults()

	_, err := NewStoreFactory(zap.NewNop()).CreateStores(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supabase client not provided")
}

func TestCreateStores_UnknownDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = "sqlite"

	_, err := NewStoreFactory(zap.NewNop()).CreateStores(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestGetSupportedTypes(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"supabase", "mongodb", "redis", "memory"},
		NewStoreFactory(zap.NewNop()).GetSupportedTypes(),
	)
}

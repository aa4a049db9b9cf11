package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mindtrack/infrastructure/config"
	"mindtrack/infrastructure/persistence"
	"mindtrack/interfaces/http/rest"
	apperrors "mindtrack/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func localConfig() *config.Config {
	cfg := config.Defaults()
	cfg.StoreDriver = config.StoreDriverMemory
	cfg.InsightProvider = config.InsightProviderMock
	cfg.Environment = "test"
	return cfg
}

func TestInitializeContainer_Local(t *testing.T) {
	c, err := InitializeContainer(context.Background(), localConfig())
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Shutdown(context.Background())) }()

	assert.Equal(t, persistence.StoreTypeMemory, c.Stores.Types["primary"])
	assert.Equal(t, persistence.StoreTypeMemory, c.Stores.Types["outbox"])

	handler := rest.NewRouter(c.RouterDependencies(), c.Logger).Setup()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/journal", strings.NewReader(`{"entry":"hello","userId":"u1"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainer_RedisOutbox(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := localConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	c, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	assert.Equal(t, persistence.StoreTypeRedis, c.Stores.Types["outbox"])
}

func TestInitializeContainer_StoreFailure(t *testing.T) {
	cfg := localConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := InitializeContainer(context.Background(), cfg)

	assert.Error(t, err)
}

func TestInitializeContainer_StoreFailureStopsTracing(t *testing.T) {
	cfg := localConfig()
	cfg.EnableTracing = true
	cfg.OTLPEndpoint = "127.0.0.1:1"
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := InitializeContainer(context.Background(), cfg)
	require.Error(t, err)

	// a shut down SDK provider hands out non-recording tracers
	_, span := otel.Tracer("check").Start(context.Background(), "after-failure")
	defer span.End()
	assert.False(t, span.IsRecording())
}

func TestUnconfiguredIdentity(t *testing.T) {
	provider := ProvideIdentityProvider(localConfig(), zap.NewNop())

	err := provider.SendMagicLink(context.Background(), "a@b.co", "")
	assert.True(t, apperrors.IsAuth(err))

	_, err = provider.SessionFromTokens(context.Background(), "a", "r")
	assert.True(t, apperrors.IsAuth(err))
}

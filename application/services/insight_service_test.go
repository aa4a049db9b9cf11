package services

import (
	"context"
	"testing"
	"time"

	"mindtrack/infrastructure/llm"
	apperrors "mindtrack/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInsightService_Generate(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetResponse("You seem calm.")
	svc := NewInsightService(mock, "")

	out, err := svc.Generate(context.Background(), "Feeling okay today")

	require.NoError(t, err)
	assert.Equal(t, "You seem calm.", out)
	assert.Equal(t,
		[]string{"Analyze this journal and give insights on this: Feeling okay today"},
		mock.Prompts())
}

func TestInsightService_Unavailable(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetAvailable(false)

	_, err := NewInsightService(mock, "").Generate(context.Background(), "x")

	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Empty(t, mock.Prompts())
}

func TestInsightService_OpenCircuitKeepsCode(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetError(apperrors.NewUpstreamError(llm.ServiceName, 503, "down"))

	cfg := llm.DefaultBreakerConfig("insight-open")
	cfg.MinRequests = 1
	cfg.FailureThreshold = 0.1
	cfg.Timeout = time.Minute
	svc := NewInsightService(llm.NewBreakerProvider(mock, cfg, zap.NewNop()), "")

	_, err := svc.Generate(context.Background(), "first")
	require.Error(t, err)

	_, err = svc.Generate(context.Background(), "second")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCircuitOpen))
	assert.Len(t, mock.Prompts(), 1)
}

func TestInsightService_PropagatesUpstreamError(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetError(apperrors.NewUpstreamError(llm.ServiceName, 500, "boom"))

	_, err := NewInsightService(mock, "").Generate(context.Background(), "x")

	assert.Equal(t, "Grok API error: Internal Server Error - boom", apperrors.PublicMessage(err))
}

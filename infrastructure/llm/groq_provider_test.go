package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "mindtrack/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) *GroqProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGroqProvider(GroqConfig{APIKey: "test-key", Endpoint: srv.URL, Timeout: 2 * time.Second})
}

func TestGroqProvider_Complete(t *testing.T) {
	var got chatRequest
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"You seem calm."}}]}`))
	})

	out, err := p.Complete(context.Background(), "Analyze this", CompletionOptions{MaxTokens: 150})

	require.NoError(t, err)
	assert.Equal(t, "You seem calm.", out)
	assert.Equal(t, DefaultGroqModel, got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Analyze this", got.Messages[0].Content)
}

func TestGroqProvider_NonSuccessStatus(t *testing.T) {
	calls := 0
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	})

	_, err := p.Complete(context.Background(), "x", CompletionOptions{MaxTokens: 150})

	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Equal(t,
		`Grok API error: Too Many Requests - {"error":{"message":"Rate limit reached"}}`,
		apperrors.PublicMessage(err))
	assert.Equal(t, 1, calls, "no retry")
}

func TestGroqProvider_MalformedResponse(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":    `{"choices":[]}`,
		"no message":    `{"choices":[{}]}`,
		"not json":      `<html>oops</html>`,
		"missing field": `{"id":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := p.Complete(context.Background(), "x", CompletionOptions{})

			require.Error(t, err)
			assert.True(t, apperrors.IsUpstream(err))
			assert.True(t, apperrors.HasCode(err, apperrors.CodeBadResponse))
			assert.Contains(t, apperrors.PublicMessage(err), "response format unexpected: "+body)
		})
	}
}

func TestGroqProvider_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	p := NewGroqProvider(GroqConfig{APIKey: "k", Endpoint: srv.URL})

	_, err := p.Complete(context.Background(), "x", CompletionOptions{})

	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestGroqProvider_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, "x", CompletionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGroqProvider_IsAvailable(t *testing.T) {
	assert.False(t, NewGroqProvider(GroqConfig{}).IsAvailable())
	assert.True(t, NewGroqProvider(GroqConfig{APIKey: "k"}).IsAvailable())
}
